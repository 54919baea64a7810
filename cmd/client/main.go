// The client command is a line-oriented terminal client for the gomoku
// server, useful for development and administration. Commands:
//
//	move <x> <y>      place a stone
//	chat <message>    send a chat message
//	users             request the roster (admin)
//	ban <address>     ban an address (admin)
//	unban <address>   unban an address (admin)
//	kick <username>   kick a user (admin)
//	end <reason>      force-end the game (admin)
//	bcast <message>   broadcast a message (admin)
//	replay            request the move history
//	quit              disconnect
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/hiraku/gomoku/internal/game"
	"github.com/hiraku/gomoku/internal/protocol"
)

var (
	addr     = flag.String("addr", "localhost:12345", "server address")
	username = flag.String("username", "", "display name to log in with")
	admin    = flag.Bool("admin", false, "log in with the admin flag")
)

var (
	infoColor   = color.New(color.FgCyan)
	errorColor  = color.New(color.FgRed)
	chatColor   = color.New(color.FgGreen)
	blackStone  = color.New(color.FgHiWhite, color.Bold)
	whiteStone  = color.New(color.FgHiYellow, color.Bold)
	systemColor = color.New(color.FgMagenta, color.Bold)
)

type client struct {
	conn  net.Conn
	board [][]string
}

func main() {
	flag.Parse()
	if *username == "" {
		fmt.Println("a -username is required")
		os.Exit(1)
	}

	conn, err := net.Dial("tcp", *addr)
	if err != nil {
		fmt.Println("error connecting:", err)
		os.Exit(1)
	}
	defer conn.Close()

	c := &client{conn: conn}
	if err := c.send(protocol.Login{Type: protocol.TypeLogin, Username: *username, IsAdmin: *admin}); err != nil {
		fmt.Println("error logging in:", err)
		os.Exit(1)
	}

	go c.receive()

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !c.dispatch(strings.TrimSpace(scanner.Text())) {
			return
		}
	}
}

func (c *client) send(message interface{}) error {
	data, err := protocol.Encode(message)
	if err != nil {
		return err
	}
	_, err = c.conn.Write(data)
	return err
}

// dispatch interprets one line of user input. It returns false when the
// client should exit.
func (c *client) dispatch(line string) bool {
	cmd, rest := line, ""
	if i := strings.IndexByte(line, ' '); i > 0 {
		cmd, rest = line[:i], strings.TrimSpace(line[i+1:])
	}

	var err error
	switch cmd {
	case "":
	case "quit":
		return false
	case "move":
		fields := strings.Fields(rest)
		if len(fields) != 2 {
			errorColor.Println("usage: move <x> <y>")
			break
		}
		x, xerr := strconv.Atoi(fields[0])
		y, yerr := strconv.Atoi(fields[1])
		if xerr != nil || yerr != nil {
			errorColor.Println("coordinates must be numbers")
			break
		}
		err = c.send(protocol.Move{Type: protocol.TypeMove, X: x, Y: y})
	case "chat":
		err = c.send(protocol.Chat{Type: protocol.TypeChat, Message: rest})
	case "replay":
		err = c.send(protocol.ReplayRequest{Type: protocol.TypeReplayRequest})
	case "users":
		err = c.send(protocol.AdminCommand{Type: protocol.TypeAdminCommand, Command: protocol.CommandGetUserList})
	case "ban":
		err = c.send(protocol.AdminCommand{Type: protocol.TypeAdminCommand, Command: protocol.CommandBanIP, Target: rest})
	case "unban":
		err = c.send(protocol.AdminCommand{Type: protocol.TypeAdminCommand, Command: protocol.CommandUnbanIP, Target: rest})
	case "kick":
		err = c.send(protocol.AdminCommand{Type: protocol.TypeAdminCommand, Command: protocol.CommandKickUser, Username: rest})
	case "end":
		err = c.send(protocol.AdminCommand{Type: protocol.TypeAdminCommand, Command: protocol.CommandForceEnd, Reason: rest})
	case "bcast":
		err = c.send(protocol.AdminCommand{Type: protocol.TypeAdminCommand, Command: protocol.CommandBroadcast, Message: rest})
	default:
		errorColor.Println("unknown command:", cmd)
	}

	if err != nil {
		errorColor.Println("send failed:", err)
		return false
	}
	return true
}

// receive prints every message from the server until the connection closes.
func (c *client) receive() {
	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, protocol.MaxFrameSize), protocol.MaxFrameSize)

	for scanner.Scan() {
		frame := scanner.Bytes()
		kind, err := protocol.Kind(frame)
		if err != nil {
			continue
		}
		c.handle(kind, frame)
	}

	systemColor.Println("disconnected from server")
	os.Exit(0)
}

func (c *client) handle(kind string, frame []byte) {
	switch kind {
	case protocol.TypeRole:
		var msg protocol.Role
		if protocol.Decode(frame, &msg) == nil {
			infoColor.Printf("logged in as %s (%s)\n", msg.Username, msg.Role)
		}
	case protocol.TypeBoard:
		var msg protocol.Board
		if protocol.Decode(frame, &msg) == nil {
			c.board = msg.Board
			c.render()
		}
	case protocol.TypeMoveMade:
		var msg protocol.MoveMade
		if protocol.Decode(frame, &msg) == nil {
			if len(c.board) == game.BoardSize && msg.X >= 0 && msg.X < game.BoardSize &&
				msg.Y >= 0 && msg.Y < game.BoardSize {
				c.board[msg.X][msg.Y] = string(msg.Piece)
			}
			c.render()
			infoColor.Printf("%s played (%d, %d)\n", msg.Username, msg.X, msg.Y)
		}
	case protocol.TypeTurn:
		var msg protocol.Turn
		if protocol.Decode(frame, &msg) == nil {
			infoColor.Printf("%s to move\n", msg.Turn)
		}
	case protocol.TypeChat:
		var msg protocol.ChatRelay
		if protocol.Decode(frame, &msg) == nil {
			chatColor.Printf("[%s] %s: %s\n", msg.Role, msg.Username, msg.Message)
		}
	case protocol.TypeGameStart:
		var msg protocol.GameStart
		if protocol.Decode(frame, &msg) == nil {
			systemColor.Println(msg.Message)
		}
	case protocol.TypeGameOver:
		var msg protocol.GameOver
		if protocol.Decode(frame, &msg) == nil {
			systemColor.Println(msg.Message)
		}
	case protocol.TypeGameForceEnd:
		var msg protocol.GameForceEnd
		if protocol.Decode(frame, &msg) == nil {
			systemColor.Println(msg.Message)
		}
	case protocol.TypeUserJoined:
		var msg protocol.UserJoined
		if protocol.Decode(frame, &msg) == nil {
			infoColor.Printf("%s joined as %s\n", msg.Username, msg.Role)
		}
	case protocol.TypeUserLeft:
		var msg protocol.UserLeft
		if protocol.Decode(frame, &msg) == nil {
			infoColor.Printf("%s left\n", msg.Username)
		}
	case protocol.TypeUserList:
		var msg protocol.UserList
		if protocol.Decode(frame, &msg) == nil {
			for _, u := range msg.Users {
				infoColor.Printf("%-16s %-10s %-15s admin=%v\n", u.Username, u.Role, u.Address, u.IsAdmin)
			}
		}
	case protocol.TypeMoveHistory:
		var msg protocol.MoveHistory
		if protocol.Decode(frame, &msg) == nil {
			for i, m := range msg.History {
				infoColor.Printf("%3d. %s %s (%d, %d)\n", i+1, m.Piece, m.Username, m.X, m.Y)
			}
		}
	case protocol.TypeBroadcast:
		var msg protocol.Broadcast
		if protocol.Decode(frame, &msg) == nil {
			systemColor.Printf("[%s] %s\n", msg.From, msg.Message)
		}
	case protocol.TypeAdminResponse:
		var msg protocol.AdminResponse
		if protocol.Decode(frame, &msg) == nil {
			infoColor.Println(msg.Message)
		}
	case protocol.TypeError, protocol.TypeBanned, protocol.TypeKicked, protocol.TypeCheating:
		var msg protocol.Error
		if protocol.Decode(frame, &msg) == nil {
			errorColor.Println(msg.Message)
		}
	case protocol.TypeCheatDetected:
		var msg protocol.CheatDetected
		if protocol.Decode(frame, &msg) == nil {
			errorColor.Printf("cheating by %s (%s): %s wins\n", msg.Cheater, msg.Reason, msg.Winner)
		}
	}
}

// render draws the board. Rows are x, columns are y, matching the server's
// coordinates.
func (c *client) render() {
	if len(c.board) != game.BoardSize {
		return
	}

	fmt.Print("   ")
	for y := 0; y < game.BoardSize; y++ {
		fmt.Printf("%2d", y)
	}
	fmt.Println()

	for x := 0; x < game.BoardSize; x++ {
		fmt.Printf("%2d ", x)
		for y := 0; y < game.BoardSize; y++ {
			switch c.board[x][y] {
			case "B":
				blackStone.Print(" ●")
			case "W":
				whiteStone.Print(" ○")
			default:
				fmt.Print(" ·")
			}
		}
		fmt.Println()
	}
}
