// Package protocol defines the messages exchanged between the server and its
// clients and the framing used to carry them over a byte stream. Every frame
// is a single flat JSON object with a "type" discriminator, terminated by a
// newline.
package protocol

import "github.com/hiraku/gomoku/internal/game"

// Message type identifiers. The inbound set is what clients may send; the
// outbound set is everything the server emits.
const (
	TypeLogin         = "login"
	TypeMove          = "move"
	TypeChat          = "chat"
	TypeReplayRequest = "replay_request"
	TypeAdminCommand  = "admin_command"

	TypeRole          = "role"
	TypeBoard         = "board"
	TypeMoveHistory   = "move_history"
	TypeChatHistory   = "chat_history"
	TypeUserJoined    = "user_joined"
	TypeUserLeft      = "user_left"
	TypeGameStart     = "game_start"
	TypeMoveMade      = "move_made"
	TypeTurn          = "turn"
	TypeGameOver      = "game_over"
	TypeGameForceEnd  = "game_force_end"
	TypeBroadcast     = "broadcast"
	TypeError         = "error"
	TypeBanned        = "banned"
	TypeKicked        = "kicked"
	TypeCheatDetected = "cheat_detected"
	TypeCheating      = "cheating"
	TypeUserList      = "user_list"
	TypeAdminResponse = "admin_response"
)

// Admin command names carried in the command field of admin_command frames.
const (
	CommandBanIP       = "ban_ip"
	CommandUnbanIP     = "unban_ip"
	CommandForceEnd    = "force_end"
	CommandBroadcast   = "broadcast"
	CommandGetUserList = "get_user_list"
	CommandKickUser    = "kick_user"
)

// Login declares the sender's display name and admin flag. It must be the
// first frame on every connection.
type Login struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Move asks the server to place the sender's stone at (x, y).
type Move struct {
	Type string `json:"type"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

// Chat carries a chat message from a client. The same type identifier is
// used for the relayed form (ChatRelay) the server fans out.
type Chat struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ReplayRequest asks for the current move history.
type ReplayRequest struct {
	Type string `json:"type"`
}

// AdminCommand carries one privileged command. Which optional fields are
// meaningful depends on the command.
type AdminCommand struct {
	Type     string `json:"type"`
	Command  string `json:"command"`
	Target   string `json:"target,omitempty"`
	Reason   string `json:"reason,omitempty"`
	Message  string `json:"message,omitempty"`
	Username string `json:"username,omitempty"`
}

// Role tells a freshly logged-in client what it was assigned.
type Role struct {
	Type     string `json:"type"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// Board carries a full board snapshot.
type Board struct {
	Type  string     `json:"type"`
	Board [][]string `json:"board"`
}

// MoveHistory carries the ordered list of accepted moves.
type MoveHistory struct {
	Type    string      `json:"type"`
	History []game.Move `json:"history"`
}

// ChatHistory carries the ordered chat transcript.
type ChatHistory struct {
	Type    string      `json:"type"`
	History []game.Chat `json:"history"`
}

// UserJoined announces a new participant to everyone.
type UserJoined struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Address  string `json:"address"`
}

// UserLeft announces a departure to everyone.
type UserLeft struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

// GameStart announces that the second player has joined and the game is on.
type GameStart struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// MoveMade announces an accepted move to everyone.
type MoveMade struct {
	Type     string     `json:"type"`
	X        int        `json:"x"`
	Y        int        `json:"y"`
	Piece    game.Piece `json:"piece"`
	Username string     `json:"username"`
}

// Turn announces whose turn it is after a non-winning move.
type Turn struct {
	Type string `json:"type"`
	Turn string `json:"turn"`
}

// GameOver announces the end of a game and its winner. A drawn game carries
// the winner label "draw" and an empty winner name.
type GameOver struct {
	Type       string `json:"type"`
	Winner     string `json:"winner"`
	WinnerName string `json:"winner_name"`
	Message    string `json:"message"`
}

// GameForceEnd announces an administrative termination of the game.
type GameForceEnd struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// ChatRelay is the fanned-out form of a chat message.
type ChatRelay struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Username string `json:"username"`
	Role     string `json:"role"`
	Audience string `json:"audience"`
}

// Broadcast is an arbitrary message from the administrator to everyone.
type Broadcast struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	From    string `json:"from"`
}

// Error is a non-fatal notice to a single client.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Banned is sent to a connection from a banned address before it is closed.
type Banned struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Kicked is sent to a session removed by an administrator.
type Kicked struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// CheatDetected announces a rate-limit violation and the resulting winner.
type CheatDetected struct {
	Type    string `json:"type"`
	Cheater string `json:"cheater"`
	Winner  string `json:"winner"`
	Reason  string `json:"reason"`
}

// Cheating is the ejection notice sent to the offender itself.
type Cheating struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// UserInfo is one roster entry.
type UserInfo struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Address  string `json:"address"`
	IsAdmin  bool   `json:"is_admin"`
}

// UserList carries the roster of every connected session.
type UserList struct {
	Type  string     `json:"type"`
	Users []UserInfo `json:"users"`
}

// AdminResponse acknowledges an admin command to its issuer.
type AdminResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
