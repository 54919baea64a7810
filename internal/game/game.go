// Package game implements the rules and state of a single five-in-a-row
// game on a 15x15 board: move validation, win detection, and the move and
// chat histories that are persisted when a game concludes.
package game

// BoardSize is the number of cells along each edge of the board.
const BoardSize = 15

// WinLength is the number of colinear same-colored stones required to win.
const WinLength = 5

// Piece is the contents of a single board cell. The values match the
// serialized board format consumed by the replay viewer.
type Piece string

const (
	Empty Piece = " "
	Black Piece = "B"
	White Piece = "W"
)

// Role identifies what a connected session is allowed to do.
type Role int

const (
	Unassigned Role = iota
	RoleBlack
	RoleWhite
	Spectator
	Admin
)

// String returns the wire representation of the role, as carried in the
// role and user_joined messages.
func (r Role) String() string {
	switch r {
	case RoleBlack:
		return "BLACK"
	case RoleWhite:
		return "WHITE"
	case Spectator:
		return "SPECTATOR"
	case Admin:
		return "ADMIN"
	}
	return "UNASSIGNED"
}

// Label returns the human-readable role name used in chat records and the
// admin roster.
func (r Role) Label() string {
	switch r {
	case RoleBlack:
		return "black"
	case RoleWhite:
		return "white"
	case Spectator:
		return "spectator"
	case Admin:
		return "admin"
	}
	return "unknown"
}

// Piece returns the stone color a role plays, or Empty for non-players.
func (r Role) Piece() Piece {
	switch r {
	case RoleBlack:
		return Black
	case RoleWhite:
		return White
	}
	return Empty
}

// IsPlayer reports whether the role holds one of the two player slots.
func (r Role) IsPlayer() bool {
	return r == RoleBlack || r == RoleWhite
}

// Move is one accepted move, recorded in arrival order.
type Move struct {
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Piece     Piece  `json:"piece"`
	Username  string `json:"username"`
	Timestamp int64  `json:"timestamp"`
}

// Chat is one chat message, recorded in arrival order alongside the moves.
type Chat struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
	Audience  string `json:"audience"`
}

// Game holds the full state of the single game in progress. It is a pure
// state machine with no locking of its own; the server serializes access.
type Game struct {
	board   [BoardSize][BoardSize]Piece
	turn    Piece
	started bool
	id      string
	moves   []Move
	chats   []Chat
}

func New() *Game {
	g := &Game{}
	g.clear()
	return g
}

func (g *Game) clear() {
	for x := range g.board {
		for y := range g.board[x] {
			g.board[x][y] = Empty
		}
	}
	g.turn = Black
	g.started = false
	g.id = ""
	g.moves = nil
	g.chats = nil
}

// Reset returns the game to its empty initial state: cleared board, Black
// to move, no identifier, and empty histories.
func (g *Game) Reset() {
	g.clear()
}

// Start flips the started flag and records the identifier under which this
// game will be persisted.
func (g *Game) Start(id string) {
	g.started = true
	g.id = id
}

func (g *Game) Started() bool { return g.started }
func (g *Game) ID() string    { return g.id }
func (g *Game) Turn() Piece   { return g.turn }

// At returns the piece at (x, y). Out-of-bounds coordinates are Empty.
func (g *Game) At(x, y int) Piece {
	if !inBounds(x, y) {
		return Empty
	}
	return g.board[x][y]
}

// IsValidMove reports whether (x, y) addresses an empty cell on the board.
func (g *Game) IsValidMove(x, y int) bool {
	return inBounds(x, y) && g.board[x][y] == Empty
}

// Apply places a piece at (x, y) and appends the move record. The caller is
// responsible for having validated the move first.
func (g *Game) Apply(x, y int, piece Piece, username string, timestamp int64) Move {
	g.board[x][y] = piece
	move := Move{X: x, Y: y, Piece: piece, Username: username, Timestamp: timestamp}
	g.moves = append(g.moves, move)
	return move
}

// NextTurn flips the side to move and returns the new side.
func (g *Game) NextTurn() Piece {
	if g.turn == Black {
		g.turn = White
	} else {
		g.turn = Black
	}
	return g.turn
}

// AddChat appends a chat record to the transcript.
func (g *Game) AddChat(c Chat) {
	g.chats = append(g.chats, c)
}

// Moves returns the ordered move history.
func (g *Game) Moves() []Move { return g.moves }

// Chats returns the ordered chat transcript.
func (g *Game) Chats() []Chat { return g.chats }

// Snapshot returns the board as the nested string array carried by board
// messages and replay files.
func (g *Game) Snapshot() [][]string {
	board := make([][]string, BoardSize)
	for x := range g.board {
		row := make([]string, BoardSize)
		for y := range g.board[x] {
			row[y] = string(g.board[x][y])
		}
		board[x] = row
	}
	return board
}

// IsFull reports whether every cell is occupied.
func (g *Game) IsFull() bool {
	return len(g.moves) >= BoardSize*BoardSize
}

var axes = [4][2][2]int{
	{{0, 1}, {0, -1}},
	{{1, 0}, {-1, 0}},
	{{1, 1}, {-1, -1}},
	{{1, -1}, {-1, 1}},
}

// CheckWin reports whether the piece just placed at (x, y) completed a run
// of at least WinLength same-colored stones on any of the four axes through
// that cell. It must be called immediately after the placement it examines.
func (g *Game) CheckWin(x, y int) bool {
	piece := g.board[x][y]
	if piece == Empty {
		return false
	}

	for _, axis := range axes {
		count := 1
		for _, dir := range axis {
			nx, ny := x, y
			for i := 0; i < WinLength-1; i++ {
				nx, ny = nx+dir[0], ny+dir[1]
				if !inBounds(nx, ny) || g.board[nx][ny] != piece {
					break
				}
				count++
			}
		}
		if count >= WinLength {
			return true
		}
	}
	return false
}

func inBounds(x, y int) bool {
	return x >= 0 && x < BoardSize && y >= 0 && y < BoardSize
}
