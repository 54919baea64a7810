package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"

	"github.com/hiraku/gomoku/internal/ban"
	"github.com/hiraku/gomoku/internal/core"
	"github.com/hiraku/gomoku/internal/protocol"
	"github.com/hiraku/gomoku/internal/server"
)

// frontend implements the concurrent client connection logic for the TCP
// listener: it accepts connections, refuses banned addresses, drives the
// login handshake, and feeds decoded frames to the server until the
// connection closes.
type frontend struct {
	Address string
	Name    string
	Config  *core.Config
	Logger  *logrus.Logger
	Server  *server.Server
	Bans    *ban.Store
}

// Start opens a TCP socket for the server. A blocking loop for accepting
// client connections is spun off in its own goroutine and added to the
// WaitGroup. Context cancellations will stop the server.
func (f *frontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	socket, err := f.createSocket()
	if err != nil {
		return fmt.Errorf("error creating socket on %s: %w", f.Address, err)
	}

	wg.Add(1)
	go f.startBlockingLoop(ctx, socket, wg)

	return nil
}

func (f *frontend) createSocket() (*net.TCPListener, error) {
	hostAddr, err := net.ResolveTCPAddr("tcp", f.Address)
	if err != nil {
		return nil, fmt.Errorf("error resolving address: %w", err)
	}

	socket, err := net.ListenTCP("tcp", hostAddr)
	if err != nil {
		return nil, fmt.Errorf("error listening on socket: %w", err)
	}

	return socket, nil
}

// startBlockingLoop implements a connection handling loop that's purely
// responsible for accepting new connections and spinning off goroutines to
// handle them.
func (f *frontend) startBlockingLoop(ctx context.Context, socket *net.TCPListener, wg *sync.WaitGroup) {
	defer wg.Done()

	f.Logger.Infof("[%s] waiting for connections on %v", f.Name, f.Address)

	connections := make(chan *net.TCPConn)
	go func() {
		for {
			connection, err := socket.AcceptTCP()
			if err != nil {
				select {
				case <-ctx.Done():
					return
				default:
				}
				f.Logger.Warnf("failed to accept connection: %s", err)
				continue
			}
			connections <- connection
		}
	}()

	clientWg := &sync.WaitGroup{}
handleLoop:
	for {
		select {
		case <-ctx.Done():
			break handleLoop
		case connection := <-connections:
			clientWg.Add(1)
			go f.acceptClient(connection, clientWg)
		}
	}

	_ = socket.Close()
	f.Logger.Infof("[%s] shutting down (waiting for connections to close)", f.Name)
	clientWg.Wait()
	f.Logger.Infof("[%s] exited", f.Name)
}

// acceptClient takes a connection and attempts to initiate a session:
// banned addresses are refused outright, and the first frame must be a
// valid login. If the handshake succeeds the goroutine moves into the frame
// processing loop.
func (f *frontend) acceptClient(connection *net.TCPConn, wg *sync.WaitGroup) {
	defer wg.Done()

	c := server.NewTCPClient(connection)

	if f.Bans.Banned(c.IPAddr()) {
		f.Logger.Infof("[%s] refused connection from banned address %s", f.Name, c.IPAddr())
		_ = c.Send(protocol.Banned{Type: protocol.TypeBanned, Message: "your address is banned from this server"})
		_ = c.Close()
		return
	}

	f.Logger.Infof("[%s] accepted connection from %s", f.Name, c.IPAddr())

	decoder := &protocol.Decoder{}
	first, leftover, err := f.readLoginFrame(c, decoder)
	if err != nil {
		f.Logger.Infof("[%s] no login from %s: %s", f.Name, c.IPAddr(), err)
		_ = c.Close()
		return
	}

	if err := f.Server.HandleLogin(c, first); err != nil {
		f.Logger.Infof("[%s] login refused: %s", f.Name, err)
		_ = c.Close()
		return
	}

	defer f.closeConnectionAndRecover(c)
	f.processFrames(c, decoder, leftover)
}

// readLoginFrame blocks until the connection yields its first complete
// frame. Any additional frames that arrived in the same reads are returned
// for processing after the login.
func (f *frontend) readLoginFrame(c *server.TCPClient, decoder *protocol.Decoder) ([]byte, [][]byte, error) {
	buffer := make([]byte, 2048)
	for {
		n, err := c.Read(buffer)
		if err != nil {
			return nil, nil, err
		}

		frames, err := decoder.Push(buffer[:n])
		if err != nil {
			return nil, nil, err
		}
		if len(frames) > 0 {
			return frames[0], frames[1:], nil
		}
	}
}

// processFrames reads from the connection until it closes or an
// unrecoverable decode error occurs, handing each complete frame to the
// server.
func (f *frontend) processFrames(c *server.TCPClient, decoder *protocol.Decoder, leftover [][]byte) {
	for _, frame := range leftover {
		f.handleFrame(c, frame)
	}

	buffer := make([]byte, 2048)
	for {
		n, err := c.Read(buffer)
		if err == io.EOF {
			return
		} else if err != nil {
			f.Logger.Debugf("[%s] read error from %s: %s", f.Name, c.IPAddr(), err)
			return
		}

		frames, err := decoder.Push(buffer[:n])
		for _, frame := range frames {
			f.handleFrame(c, frame)
		}
		if errors.Is(err, protocol.ErrFrameTooLarge) {
			f.Logger.Warnf("[%s] dropping %s: %s", f.Name, c.IPAddr(), err)
			return
		}
	}
}

func (f *frontend) handleFrame(c server.Client, frame []byte) {
	if f.Config.Debugging.FrameLoggingEnabled {
		var decoded map[string]interface{}
		if err := json.Unmarshal(frame, &decoded); err == nil {
			f.Logger.Debugf("[%s] frame from %s:\n%s", f.Name, c.IPAddr(), spew.Sdump(decoded))
		}
	}
	f.Server.Handle(c, frame)
}

// closeConnectionAndRecover is the failsafe that catches any panics,
// disconnects the client, and removes its session regardless of the state
// of the connection.
func (f *frontend) closeConnectionAndRecover(c *server.TCPClient) {
	if err := recover(); err != nil {
		f.Logger.Errorf("error in client communication with %s: error=%s, trace: %s",
			c.IPAddr(), err, debug.Stack())
	}

	f.Server.Disconnect(c)

	if err := c.Close(); err != nil {
		f.Logger.Debugf("failed to close client connection: %s", err)
	}

	f.Logger.Infof("[%s] disconnected client %s", f.Name, c.IPAddr())
}
