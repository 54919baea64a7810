package game

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTurnAlternation(t *testing.T) {
	g := New()

	if g.Turn() != Black {
		t.Fatalf("expected Black to move first, got %q", g.Turn())
	}

	moves := []struct{ x, y int }{{7, 7}, {8, 8}, {7, 8}, {8, 9}, {7, 9}}
	for i, m := range moves {
		mover := g.Turn()
		if !g.IsValidMove(m.x, m.y) {
			t.Fatalf("move %d at (%d,%d) unexpectedly invalid", i, m.x, m.y)
		}
		g.Apply(m.x, m.y, mover, "player", time.Now().Unix())

		if next := g.NextTurn(); next == mover {
			t.Fatalf("after move %d the side to move is still %q", i, mover)
		}
	}
}

func TestCheckWin(t *testing.T) {
	type placement struct{ x, y int }

	tests := map[string]struct {
		stones []placement
		last   placement
		want   bool
	}{
		"horizontal_five": {
			stones: []placement{{7, 3}, {7, 4}, {7, 5}, {7, 6}, {7, 7}},
			last:   placement{7, 7},
			want:   true,
		},
		"vertical_five": {
			stones: []placement{{3, 7}, {4, 7}, {5, 7}, {6, 7}, {7, 7}},
			last:   placement{3, 7},
			want:   true,
		},
		"diagonal_five": {
			stones: []placement{{3, 3}, {4, 4}, {5, 5}, {6, 6}, {7, 7}},
			last:   placement{5, 5},
			want:   true,
		},
		"antidiagonal_five": {
			stones: []placement{{3, 7}, {4, 6}, {5, 5}, {6, 4}, {7, 3}},
			last:   placement{7, 3},
			want:   true,
		},
		"four_is_not_enough": {
			stones: []placement{{7, 3}, {7, 4}, {7, 5}, {7, 6}},
			last:   placement{7, 6},
			want:   false,
		},
		"gap_breaks_run": {
			stones: []placement{{7, 3}, {7, 4}, {7, 6}, {7, 7}, {7, 8}},
			last:   placement{7, 8},
			want:   false,
		},
		"run_across_board_edge": {
			stones: []placement{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}},
			last:   placement{0, 4},
			want:   true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			g := New()
			for _, s := range tt.stones {
				g.Apply(s.x, s.y, Black, "black", 0)
			}
			if got := g.CheckWin(tt.last.x, tt.last.y); got != tt.want {
				t.Errorf("CheckWin(%d, %d) = %v, want %v", tt.last.x, tt.last.y, got, tt.want)
			}
		})
	}
}

func TestCheckWinIgnoresOpponentStones(t *testing.T) {
	g := New()
	g.Apply(7, 3, Black, "b", 0)
	g.Apply(7, 4, Black, "b", 0)
	g.Apply(7, 5, White, "w", 0)
	g.Apply(7, 6, Black, "b", 0)
	g.Apply(7, 7, Black, "b", 0)

	if g.CheckWin(7, 7) {
		t.Error("a run interrupted by an opponent stone should not win")
	}
}

func TestIsValidMove(t *testing.T) {
	g := New()
	g.Apply(7, 7, Black, "b", 0)

	tests := map[string]struct {
		x, y int
		want bool
	}{
		"empty_cell":    {0, 0, true},
		"occupied_cell": {7, 7, false},
		"x_too_small":   {-1, 0, false},
		"y_too_small":   {0, -1, false},
		"x_too_large":   {15, 0, false},
		"y_too_large":   {0, 15, false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := g.IsValidMove(tt.x, tt.y); got != tt.want {
				t.Errorf("IsValidMove(%d, %d) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestReset(t *testing.T) {
	g := New()
	g.Start("test-game")
	g.Apply(7, 7, Black, "b", 0)
	g.NextTurn()
	g.AddChat(Chat{Username: "b", Message: "hi"})

	g.Reset()

	if g.Started() {
		t.Error("expected started flag to be cleared")
	}
	if g.ID() != "" {
		t.Errorf("expected identifier to be cleared, got %q", g.ID())
	}
	if g.Turn() != Black {
		t.Errorf("expected Black to move after reset, got %q", g.Turn())
	}
	if len(g.Moves()) != 0 || len(g.Chats()) != 0 {
		t.Error("expected histories to be cleared")
	}

	empty := New().Snapshot()
	if diff := cmp.Diff(empty, g.Snapshot()); diff != "" {
		t.Errorf("board not empty after reset: %s", diff)
	}
}

func TestSnapshot(t *testing.T) {
	g := New()
	g.Apply(0, 1, Black, "b", 0)
	g.Apply(14, 14, White, "w", 0)

	board := g.Snapshot()
	if len(board) != BoardSize {
		t.Fatalf("expected %d rows, got %d", BoardSize, len(board))
	}
	if board[0][1] != "B" {
		t.Errorf("expected B at (0,1), got %q", board[0][1])
	}
	if board[14][14] != "W" {
		t.Errorf("expected W at (14,14), got %q", board[14][14])
	}
	if board[7][7] != " " {
		t.Errorf("expected empty cell at (7,7), got %q", board[7][7])
	}
}

func TestAt(t *testing.T) {
	g := New()
	g.Apply(0, 1, Black, "b", 0)
	g.Apply(14, 14, White, "w", 0)

	tests := []struct {
		x, y int
		want Piece
	}{
		{0, 1, Black},
		{14, 14, White},
		{7, 7, Empty},
		{-1, 0, Empty},
		{0, -1, Empty},
		{BoardSize, 0, Empty},
		{0, BoardSize, Empty},
	}
	for _, tt := range tests {
		if got := g.At(tt.x, tt.y); got != tt.want {
			t.Errorf("At(%d, %d) = %q, want %q", tt.x, tt.y, got, tt.want)
		}
	}
}

func TestIsFull(t *testing.T) {
	g := New()
	piece := Black
	for x := 0; x < BoardSize; x++ {
		for y := 0; y < BoardSize; y++ {
			if g.IsFull() {
				t.Fatal("board reported full before every cell was occupied")
			}
			g.Apply(x, y, piece, "p", 0)
			if piece == Black {
				piece = White
			} else {
				piece = Black
			}
		}
	}
	if !g.IsFull() {
		t.Error("board with every cell occupied not reported full")
	}
}

func TestRoleMapping(t *testing.T) {
	tests := []struct {
		role   Role
		str    string
		label  string
		piece  Piece
		player bool
	}{
		{RoleBlack, "BLACK", "black", Black, true},
		{RoleWhite, "WHITE", "white", White, true},
		{Spectator, "SPECTATOR", "spectator", Empty, false},
		{Admin, "ADMIN", "admin", Empty, false},
		{Unassigned, "UNASSIGNED", "unknown", Empty, false},
	}

	for _, tt := range tests {
		if got := tt.role.String(); got != tt.str {
			t.Errorf("%v.String() = %q, want %q", tt.role, got, tt.str)
		}
		if got := tt.role.Label(); got != tt.label {
			t.Errorf("%v.Label() = %q, want %q", tt.role, got, tt.label)
		}
		if got := tt.role.Piece(); got != tt.piece {
			t.Errorf("%v.Piece() = %q, want %q", tt.role, got, tt.piece)
		}
		if got := tt.role.IsPlayer(); got != tt.player {
			t.Errorf("%v.IsPlayer() = %v, want %v", tt.role, got, tt.player)
		}
	}
}
