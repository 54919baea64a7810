package internal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/hiraku/gomoku/internal/ban"
	"github.com/hiraku/gomoku/internal/core"
	"github.com/hiraku/gomoku/internal/protocol"
	"github.com/hiraku/gomoku/internal/server"
)

// wsFrontend serves the same protocol over WebSocket. One text message
// carries one frame, so no stream framing is needed; everything past the
// transport is shared with the TCP frontend.
type wsFrontend struct {
	Address string
	Name    string
	Config  *core.Config
	Logger  *logrus.Logger
	Server  *server.Server
	Bans    *ban.Store

	upgrader websocket.Upgrader
}

func (f *wsFrontend) Start(ctx context.Context, wg *sync.WaitGroup) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", f.handleUpgrade)

	httpServer := &http.Server{Addr: f.Address, Handler: mux}

	wg.Add(1)
	go func() {
		defer wg.Done()
		f.Logger.Infof("[%s] waiting for connections on %v", f.Name, f.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			f.Logger.Errorf("[%s] listener failed: %s", f.Name, err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	return nil
}

func (f *wsFrontend) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	connection, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.Logger.Warnf("[%s] upgrade failed for %s: %s", f.Name, r.RemoteAddr, err)
		return
	}

	c := server.NewWebSocketClient(connection)

	if f.Bans.Banned(c.IPAddr()) {
		f.Logger.Infof("[%s] refused connection from banned address %s", f.Name, c.IPAddr())
		_ = c.Send(protocol.Banned{Type: protocol.TypeBanned, Message: "your address is banned from this server"})
		_ = c.Close()
		return
	}

	f.Logger.Infof("[%s] accepted connection from %s", f.Name, c.IPAddr())

	first, err := c.ReadFrame()
	if err != nil {
		_ = c.Close()
		return
	}
	if err := f.Server.HandleLogin(c, first); err != nil {
		f.Logger.Infof("[%s] login refused: %s", f.Name, err)
		_ = c.Close()
		return
	}

	defer func() {
		f.Server.Disconnect(c)
		_ = c.Close()
		f.Logger.Infof("[%s] disconnected client %s", f.Name, c.IPAddr())
	}()

	for {
		frame, err := c.ReadFrame()
		if err != nil {
			return
		}
		if len(frame) == 0 {
			continue
		}
		if len(frame) > protocol.MaxFrameSize {
			f.Logger.Warnf("[%s] dropping %s: oversized frame", f.Name, c.IPAddr())
			return
		}
		f.Server.Handle(c, frame)
	}
}
