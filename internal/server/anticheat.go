package server

import (
	"fmt"

	"github.com/hiraku/gomoku/internal/protocol"
)

// cheatLocked handles a rate-limit violation by a player: the offender's
// address is banned, everyone is told, the offender is ejected and
// deregistered, and any game in progress is resolved in the opponent's
// favor. The attempted move is never applied.
func (s *Server) cheatLocked(offender *session, reason string, pending *[]delivery, post *[]func()) {
	s.logger.Warnf("cheating detected from %s (%s): %s", offender.username, offender.addr, reason)

	addr := offender.addr
	*post = append(*post, func() {
		if err := s.bans.Ban(addr); err != nil {
			s.logger.Warnf("error banning %s: %s", addr, err)
		}
	})

	var opponent *session
	for _, sess := range s.sessions {
		if sess.role.IsPlayer() && sess != offender {
			opponent = sess
			break
		}
	}
	winnerName := "system"
	if opponent != nil {
		winnerName = opponent.username
	}

	*pending = append(*pending, delivery{s.allLocked(), protocol.CheatDetected{
		Type:    protocol.TypeCheatDetected,
		Cheater: offender.username,
		Winner:  winnerName,
		Reason:  reason,
	}})
	*pending = append(*pending, delivery{[]Client{offender.client}, protocol.Cheating{
		Type:    protocol.TypeCheating,
		Message: fmt.Sprintf("you have been removed for cheating: %s", reason),
	}})

	offenderClient := offender.client
	*post = append(*post, func() { _ = offenderClient.Close() })

	s.removeLocked(offender)

	if s.game.Started() && opponent != nil {
		label := opponent.role.Label()
		*pending = append(*pending, delivery{s.allLocked(), protocol.GameOver{
			Type:       protocol.TypeGameOver,
			Winner:     label,
			WinnerName: opponent.username,
			Message:    fmt.Sprintf("%s wins: opponent was caught cheating", opponent.username),
		}})
		s.concludeLocked(label, opponent.username, pending, post)
	}
}
