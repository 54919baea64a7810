package server

import (
	"fmt"

	"github.com/hiraku/gomoku/internal/protocol"
)

// handleAdminCommand interprets one privileged command. Commands from
// sessions without the admin flag are silently ignored.
func (s *Server) handleAdminCommand(c Client, cmd protocol.AdminCommand) {
	var pending []delivery
	var post []func()

	s.mu.Lock()
	sess := s.sessions[c]
	if sess == nil || !sess.isAdmin {
		s.mu.Unlock()
		return
	}

	reply := func(format string, args ...interface{}) {
		pending = append(pending, delivery{[]Client{c}, protocol.AdminResponse{
			Type:    protocol.TypeAdminResponse,
			Message: fmt.Sprintf(format, args...),
		}})
	}

	switch cmd.Command {
	case protocol.CommandBanIP:
		if cmd.Target == "" {
			reply("ban_ip requires a target address")
			break
		}
		target := cmd.Target
		post = append(post, func() {
			if err := s.bans.Ban(target); err != nil {
				s.logger.Warnf("error banning %s: %s", target, err)
			}
		})
		reply("banned %s", target)

	case protocol.CommandUnbanIP:
		if cmd.Target == "" {
			reply("unban_ip requires a target address")
			break
		}
		target := cmd.Target
		post = append(post, func() { s.bans.Unban(target) })
		reply("unbanned %s", target)

	case protocol.CommandForceEnd:
		pending = append(pending, delivery{s.allLocked(), protocol.GameForceEnd{
			Type:    protocol.TypeGameForceEnd,
			Message: fmt.Sprintf("game ended by the administrator: %s", cmd.Reason),
			Reason:  cmd.Reason,
		}})
		s.concludeLocked("forced by admin", "", &pending, &post)
		s.logger.Infof("%s force-ended the game: %s", sess.username, cmd.Reason)

	case protocol.CommandBroadcast:
		pending = append(pending, delivery{s.allLocked(), protocol.Broadcast{
			Type:    protocol.TypeBroadcast,
			Message: cmd.Message,
			From:    "admin",
		}})

	case protocol.CommandGetUserList:
		pending = append(pending, delivery{[]Client{c}, s.rosterLocked()})

	case protocol.CommandKickUser:
		target := s.findByNameLocked(cmd.Username)
		if target == nil {
			reply("no such user: %s", cmd.Username)
			break
		}
		pending = append(pending, delivery{[]Client{target.client}, protocol.Kicked{
			Type:    protocol.TypeKicked,
			Message: "you have been kicked by the administrator",
		}})
		// Closing the connection makes the target's own handling goroutine
		// run the usual teardown.
		targetClient := target.client
		post = append(post, func() { _ = targetClient.Close() })
		reply("kicked %s", cmd.Username)
		s.logger.Infof("%s kicked %s", sess.username, cmd.Username)

	default:
		reply("unknown command: %s", cmd.Command)
	}
	s.mu.Unlock()

	s.flush(pending)
	for _, fn := range post {
		fn()
	}
}

func (s *Server) findByNameLocked(username string) *session {
	for _, sess := range s.sessions {
		if sess.username == username {
			return sess
		}
	}
	return nil
}
