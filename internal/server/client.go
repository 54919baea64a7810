package server

import (
	"net"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/hiraku/gomoku/internal/protocol"
)

// Client is one connected participant's transport. Implementations are owned
// by the connection's handling goroutine; Send and Close may additionally be
// called by other goroutines (broadcasts, kicks) and serialize their writes.
type Client interface {
	// IPAddr returns the client's source address without the port.
	IPAddr() string
	// Send encodes a message and delivers it as one frame.
	Send(message interface{}) error
	// Close terminates the connection.
	Close() error
}

// TCPClient adapts a raw TCP connection to the Client interface. Frames are
// newline-delimited; reading and decoding is the frontend's job.
type TCPClient struct {
	mu         sync.Mutex
	connection net.Conn
	ipAddr     string
}

func NewTCPClient(connection net.Conn) *TCPClient {
	host, _, err := net.SplitHostPort(connection.RemoteAddr().String())
	if err != nil {
		host = connection.RemoteAddr().String()
	}
	return &TCPClient{connection: connection, ipAddr: host}
}

func (c *TCPClient) IPAddr() string { return c.ipAddr }

// Read consumes the available bytes directly from the client's TCP connection.
func (c *TCPClient) Read(b []byte) (int, error) {
	return c.connection.Read(b)
}

func (c *TCPClient) Send(message interface{}) error {
	data, err := protocol.Encode(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.connection.Write(data)
	return err
}

func (c *TCPClient) Close() error {
	return c.connection.Close()
}

// WebSocketClient adapts a WebSocket connection to the Client interface.
// Each text message carries exactly one frame.
type WebSocketClient struct {
	mu         sync.Mutex
	connection *websocket.Conn
	ipAddr     string
}

func NewWebSocketClient(connection *websocket.Conn) *WebSocketClient {
	host, _, err := net.SplitHostPort(connection.RemoteAddr().String())
	if err != nil {
		host = connection.RemoteAddr().String()
	}
	return &WebSocketClient{connection: connection, ipAddr: host}
}

func (c *WebSocketClient) IPAddr() string { return c.ipAddr }

// ReadFrame blocks until the next message arrives and returns its payload.
func (c *WebSocketClient) ReadFrame() ([]byte, error) {
	_, data, err := c.connection.ReadMessage()
	return data, err
}

func (c *WebSocketClient) Send(message interface{}) error {
	data, err := protocol.Encode(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection.WriteMessage(websocket.TextMessage, data)
}

func (c *WebSocketClient) Close() error {
	return c.connection.Close()
}
