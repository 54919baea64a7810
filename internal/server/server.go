// Package server implements the session registry, message dispatch, and
// game-state coordination for the gomoku server: role assignment at login,
// move and chat handling, best-effort fan-out, administrative commands, and
// the move-rate cheat check.
package server

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hiraku/gomoku/internal/archive"
	"github.com/hiraku/gomoku/internal/ban"
	"github.com/hiraku/gomoku/internal/core"
	"github.com/hiraku/gomoku/internal/game"
	"github.com/hiraku/gomoku/internal/protocol"
)

// session is the server-side record of one connected participant.
type session struct {
	client   Client
	username string
	role     game.Role
	addr     string
	isAdmin  bool
	// Time of the last move attempt that passed the rate check. The zero
	// value exempts a player's first move.
	lastMove time.Time
}

// delivery is one message bound for a captured set of recipients. Deliveries
// are composed under the server lock and sent after it is released.
type delivery struct {
	targets []Client
	message interface{}
}

// Server owns all shared state: the session registry, the game, and the
// display-name set. A single mutex serializes every read and mutation
// because the invariants span several structures at once; sends happen
// outside the lock on state captured under it.
type Server struct {
	config  *core.Config
	logger  *logrus.Logger
	bans    *ban.Store
	archive *archive.Archive

	mu        sync.Mutex
	sessions  map[Client]*session
	usernames map[string]struct{}
	game      *game.Game
	// Player slots stay held by mid-game leavers until the next reset.
	blackHeld bool
	whiteHeld bool
}

func NewServer(cfg *core.Config, logger *logrus.Logger, bans *ban.Store, arch *archive.Archive) *Server {
	return &Server{
		config:    cfg,
		logger:    logger,
		bans:      bans,
		archive:   arch,
		sessions:  make(map[Client]*session),
		usernames: make(map[string]struct{}),
		game:      game.New(),
	}
}

// HandleLogin processes the first frame of a connection. On success the
// session is registered, assigned a role, synchronized with the current game
// state, and announced; the returned error is nil. On failure an error frame
// has been sent and the caller must close the connection.
func (s *Server) HandleLogin(c Client, frame []byte) error {
	kind, err := protocol.Kind(frame)
	if err != nil || kind != protocol.TypeLogin {
		_ = c.Send(protocol.Error{Type: protocol.TypeError, Message: "login required"})
		return fmt.Errorf("first frame from %s was not a login", c.IPAddr())
	}

	var login protocol.Login
	if err := protocol.Decode(frame, &login); err != nil || login.Username == "" {
		_ = c.Send(protocol.Error{Type: protocol.TypeError, Message: "malformed login"})
		return fmt.Errorf("malformed login from %s", c.IPAddr())
	}

	s.mu.Lock()
	if _, taken := s.usernames[login.Username]; taken {
		s.mu.Unlock()
		_ = c.Send(protocol.Error{Type: protocol.TypeError, Message: "username already in use"})
		return fmt.Errorf("username %q already in use", login.Username)
	}

	sess := &session{
		client:   c,
		username: login.Username,
		addr:     c.IPAddr(),
		isAdmin:  login.IsAdmin,
	}

	gameStarting := false
	switch {
	case login.IsAdmin:
		sess.role = game.Admin
	case !s.blackHeld:
		sess.role = game.RoleBlack
		s.blackHeld = true
	case !s.whiteHeld:
		sess.role = game.RoleWhite
		s.whiteHeld = true
		if !s.game.Started() {
			s.game.Start(uuid.New().String())
			gameStarting = true
		}
	default:
		sess.role = game.Spectator
	}

	s.sessions[c] = sess
	s.usernames[login.Username] = struct{}{}

	var pending []delivery
	self := []Client{c}
	pending = append(pending,
		delivery{self, protocol.Role{Type: protocol.TypeRole, Role: sess.role.String(), Username: sess.username}},
		delivery{self, protocol.Board{Type: protocol.TypeBoard, Board: s.game.Snapshot()}},
		delivery{self, protocol.MoveHistory{Type: protocol.TypeMoveHistory, History: s.game.Moves()}},
		delivery{self, protocol.ChatHistory{Type: protocol.TypeChatHistory, History: s.game.Chats()}},
	)
	if sess.isAdmin {
		pending = append(pending, delivery{self, s.rosterLocked()})
	} else {
		pending = append(pending, delivery{s.allLocked(), protocol.UserJoined{
			Type:     protocol.TypeUserJoined,
			Username: sess.username,
			Role:     sess.role.String(),
			Address:  sess.addr,
		}})
	}
	if gameStarting {
		pending = append(pending, delivery{s.allLocked(), protocol.GameStart{
			Type:    protocol.TypeGameStart,
			Message: "game on! black moves first",
		}})
	}
	s.mu.Unlock()

	s.logger.Infof("%s logged in from %s as %s", sess.username, sess.addr, sess.role)
	s.flush(pending)
	return nil
}

// Handle dispatches one decoded frame from a logged-in client. Undecodable
// frames are dropped; valid frames behind them are unaffected.
func (s *Server) Handle(c Client, frame []byte) {
	kind, err := protocol.Kind(frame)
	if err != nil {
		s.logger.Debugf("dropping frame from %s: %s", c.IPAddr(), err)
		return
	}

	switch kind {
	case protocol.TypeMove:
		var msg protocol.Move
		if err := protocol.Decode(frame, &msg); err != nil {
			s.logger.Debugf("dropping move from %s: %s", c.IPAddr(), err)
			return
		}
		s.handleMove(c, msg)
	case protocol.TypeChat:
		var msg protocol.Chat
		if err := protocol.Decode(frame, &msg); err != nil {
			s.logger.Debugf("dropping chat from %s: %s", c.IPAddr(), err)
			return
		}
		s.handleChat(c, msg)
	case protocol.TypeReplayRequest:
		s.handleReplayRequest(c)
	case protocol.TypeAdminCommand:
		var msg protocol.AdminCommand
		if err := protocol.Decode(frame, &msg); err != nil {
			s.logger.Debugf("dropping admin command from %s: %s", c.IPAddr(), err)
			return
		}
		s.handleAdminCommand(c, msg)
	default:
		s.logger.Infof("received unknown message %q from %s", kind, c.IPAddr())
	}
}

// handleMove runs the full move pipeline: role check, turn check, rate
// check, validity check, placement, and conclusion when the move wins or
// fills the board.
func (s *Server) handleMove(c Client, msg protocol.Move) {
	var pending []delivery
	var post []func()

	s.mu.Lock()
	sess := s.sessions[c]
	if sess == nil || !sess.role.IsPlayer() {
		s.mu.Unlock()
		return
	}

	if sess.role.Piece() != s.game.Turn() {
		s.mu.Unlock()
		_ = c.Send(protocol.Error{Type: protocol.TypeError, Message: "not your turn"})
		return
	}

	now := time.Now()
	if interval := s.config.MinMoveInterval(); interval > 0 &&
		!sess.lastMove.IsZero() && now.Sub(sess.lastMove) < interval {
		s.cheatLocked(sess, "moves issued faster than the allowed interval", &pending, &post)
		s.mu.Unlock()
		s.flush(pending)
		for _, fn := range post {
			fn()
		}
		return
	}
	sess.lastMove = now

	if !s.game.IsValidMove(msg.X, msg.Y) {
		s.mu.Unlock()
		return
	}

	piece := sess.role.Piece()
	s.game.Apply(msg.X, msg.Y, piece, sess.username, now.Unix())

	pending = append(pending, delivery{s.allLocked(), protocol.MoveMade{
		Type:     protocol.TypeMoveMade,
		X:        msg.X,
		Y:        msg.Y,
		Piece:    piece,
		Username: sess.username,
	}})

	switch {
	case s.game.CheckWin(msg.X, msg.Y):
		label := sess.role.Label()
		pending = append(pending, delivery{s.allLocked(), protocol.GameOver{
			Type:       protocol.TypeGameOver,
			Winner:     label,
			WinnerName: sess.username,
			Message:    fmt.Sprintf("%s (%s) wins!", label, sess.username),
		}})
		s.concludeLocked(label, sess.username, &pending, &post)
	case s.game.IsFull():
		// A full board with no winner is declared a draw.
		pending = append(pending, delivery{s.allLocked(), protocol.GameOver{
			Type:       protocol.TypeGameOver,
			Winner:     "draw",
			WinnerName: "",
			Message:    "board is full: game drawn",
		}})
		s.concludeLocked("draw", "", &pending, &post)
	default:
		next := s.game.NextTurn()
		pending = append(pending, delivery{s.allLocked(), protocol.Turn{
			Type: protocol.TypeTurn,
			Turn: turnLabel(next),
		}})
	}
	s.mu.Unlock()

	s.flush(pending)
	for _, fn := range post {
		fn()
	}
}

func (s *Server) handleChat(c Client, msg protocol.Chat) {
	var pending []delivery

	s.mu.Lock()
	sess := s.sessions[c]
	if sess == nil {
		s.mu.Unlock()
		return
	}

	roleLabel := sess.role.Label()
	audience := "all"
	spectatorOnly := sess.role == game.Spectator && !sess.isAdmin
	if spectatorOnly {
		audience = "spectators"
	}

	s.game.AddChat(game.Chat{
		Username:  sess.username,
		Role:      roleLabel,
		Message:   msg.Message,
		Timestamp: time.Now().Unix(),
		Audience:  audience,
	})

	relay := protocol.ChatRelay{
		Type:     protocol.TypeChat,
		Message:  msg.Message,
		Username: sess.username,
		Role:     roleLabel,
		Audience: audience,
	}
	if spectatorOnly {
		pending = append(pending, delivery{s.spectatorsLocked(c), relay})
	} else {
		pending = append(pending, delivery{s.allLocked(), relay})
	}
	s.mu.Unlock()

	s.flush(pending)
}

func (s *Server) handleReplayRequest(c Client) {
	s.mu.Lock()
	history := s.game.Moves()
	s.mu.Unlock()

	_ = c.Send(protocol.MoveHistory{Type: protocol.TypeMoveHistory, History: history})
}

// Disconnect tears down a session: deregisters it, releases its display
// name, and announces the departure. Calling it for an unknown client is a
// no-op, which serializes disconnects racing with kicks and ejections.
func (s *Server) Disconnect(c Client) {
	s.mu.Lock()
	sess := s.sessions[c]
	if sess == nil {
		s.mu.Unlock()
		return
	}
	s.removeLocked(sess)
	targets := s.allLocked()
	s.mu.Unlock()

	s.logger.Infof("%s disconnected", sess.username)
	s.flush([]delivery{{targets, protocol.UserLeft{Type: protocol.TypeUserLeft, Username: sess.username}}})
}

// removeLocked deregisters a session and releases its name. A player slot is
// freed immediately only if no game is in progress; otherwise it stays held
// until the next reset.
func (s *Server) removeLocked(sess *session) {
	delete(s.sessions, sess.client)
	delete(s.usernames, sess.username)

	if sess.role.IsPlayer() && !s.game.Started() {
		s.freeSlotLocked(sess.role)
	}
}

func (s *Server) freeSlotLocked(role game.Role) {
	switch role {
	case game.RoleBlack:
		s.blackHeld = false
	case game.RoleWhite:
		s.whiteHeld = false
	}
}

// concludeLocked persists the finished game (if it has an identifier),
// resets it, recomputes which player slots remain held by connected
// sessions, and queues the cleared board for broadcast.
func (s *Server) concludeLocked(winner, winnerName string, pending *[]delivery, post *[]func()) {
	if id := s.game.ID(); id != "" {
		moves := s.game.Moves()
		chats := s.game.Chats()
		*post = append(*post, func() {
			if err := s.archive.Save(id, winner, winnerName, moves, chats); err != nil {
				s.logger.Warnf("error archiving game %s: %s", id, err)
			}
		})
	}

	s.game.Reset()

	s.blackHeld, s.whiteHeld = false, false
	for _, sess := range s.sessions {
		switch sess.role {
		case game.RoleBlack:
			s.blackHeld = true
		case game.RoleWhite:
			s.whiteHeld = true
		}
		// The rate window restarts with the game: every player's first
		// move of the next game is exempt from the interval check.
		sess.lastMove = time.Time{}
	}

	*pending = append(*pending, delivery{s.allLocked(), protocol.Board{
		Type:  protocol.TypeBoard,
		Board: s.game.Snapshot(),
	}})
}

// rosterLocked builds the user_list message from the current registry.
func (s *Server) rosterLocked() protocol.UserList {
	users := make([]protocol.UserInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		users = append(users, protocol.UserInfo{
			Username: sess.username,
			Role:     sess.role.Label(),
			Address:  sess.addr,
			IsAdmin:  sess.isAdmin,
		})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return protocol.UserList{Type: protocol.TypeUserList, Users: users}
}

// allLocked captures every connected client.
func (s *Server) allLocked() []Client {
	targets := make([]Client, 0, len(s.sessions))
	for c := range s.sessions {
		targets = append(targets, c)
	}
	return targets
}

// playersLocked captures the player subset.
func (s *Server) playersLocked() []Client {
	var targets []Client
	for c, sess := range s.sessions {
		if sess.role.IsPlayer() {
			targets = append(targets, c)
		}
	}
	return targets
}

// spectatorsLocked captures every spectator except the given client.
func (s *Server) spectatorsLocked(except Client) []Client {
	var targets []Client
	for c, sess := range s.sessions {
		if sess.role == game.Spectator && c != except {
			targets = append(targets, c)
		}
	}
	return targets
}

// flush delivers every pending message. Delivery is best effort: a failed
// send is logged and never stops delivery to the remaining recipients; dead
// connections are cleaned up by their own handling goroutine's teardown.
func (s *Server) flush(pending []delivery) {
	for _, d := range pending {
		for _, c := range d.targets {
			if err := c.Send(d.message); err != nil {
				s.logger.Debugf("failed to deliver %T to %s: %s", d.message, c.IPAddr(), err)
			}
		}
	}
}

func turnLabel(p game.Piece) string {
	if p == game.Black {
		return "BLACK"
	}
	return "WHITE"
}
