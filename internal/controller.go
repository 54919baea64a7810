package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hiraku/gomoku/internal/archive"
	"github.com/hiraku/gomoku/internal/ban"
	"github.com/hiraku/gomoku/internal/core"
	"github.com/hiraku/gomoku/internal/server"
)

// Controller is the main entrypoint for the server. It's responsible for
// initializing the shared resources (logging, the ban store, the game
// archive), wiring up the server, and launching the listeners.
type Controller struct {
	Config *core.Config

	logger *logrus.Logger
	wg     sync.WaitGroup
}

func (c *Controller) Start(ctx context.Context) error {
	var err error
	// Set up the logger, which will be used by every component.
	c.logger, err = core.NewLogger(c.Config)
	if err != nil {
		return fmt.Errorf("error initializing logger: %w", err)
	}

	bans, err := ban.NewStore(c.Config.Bans.File, c.Config.BanExpiry(), c.logger)
	if err != nil {
		return fmt.Errorf("error initializing ban store: %w", err)
	}

	arch, err := archive.New(c.Config, c.logger)
	if err != nil {
		return fmt.Errorf("error initializing game archive: %w", err)
	}
	defer func() {
		if err := arch.Shutdown(); err != nil {
			c.logger.Warnf("error shutting down archive: %s", err)
		}
	}()

	srv := server.NewServer(c.Config, c.logger, bans, arch)

	game := &frontend{
		Address: c.Config.GameAddress(),
		Name:    "GAME",
		Config:  c.Config,
		Logger:  c.logger,
		Server:  srv,
		Bans:    bans,
	}
	if err := game.Start(ctx, &c.wg); err != nil {
		return fmt.Errorf("error starting game server: %w", err)
	}

	if c.Config.WebSocket.Enabled {
		ws := &wsFrontend{
			Address: c.Config.WebSocketAddress(),
			Name:    "WS",
			Config:  c.Config,
			Logger:  c.logger,
			Server:  srv,
			Bans:    bans,
		}
		if err := ws.Start(ctx, &c.wg); err != nil {
			return fmt.Errorf("error starting websocket server: %w", err)
		}
	}

	c.wg.Wait()
	return nil
}
