package relay

import (
	"errors"

	"go.uber.org/zap"
)

// Session is the per-connection lifecycle: join the room, replay history,
// relay inbound messages, leave on any terminal condition. One Session runs
// per connection, concurrently with all others; sessions only meet inside
// the Registry.
type Session struct {
	reg    *Registry
	roomID string
	ch     Channel
}

func NewSession(reg *Registry, roomID string, ch Channel) *Session {
	return &Session{reg: reg, roomID: roomID, ch: ch}
}

// Run blocks until the connection terminates. Leave and Close happen
// exactly once, on every exit path.
func (s *Session) Run() {
	history := s.reg.Join(s.roomID, s.ch)

	defer func() {
		s.reg.Leave(s.roomID, s.ch)
		_ = s.ch.Close()
		zap.L().Info("relay.left", zap.String("room", s.roomID))
	}()

	// Replay before accepting any inbound traffic.
	for _, msg := range history {
		if err := s.ch.Send(msg.Encode()); err != nil {
			zap.L().Debug("relay.replay_aborted", zap.String("room", s.roomID), zap.Error(err))
			return
		}
	}
	zap.L().Info("relay.joined",
		zap.String("room", s.roomID),
		zap.Int("replayed", len(history)),
	)

	for {
		data, err := s.ch.Receive()
		if err != nil {
			return // peer closed or channel broke; not a failure
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			// Fatal to this connection only, never to the room.
			if errors.Is(err, ErrMalformedPayload) {
				zap.L().Warn("relay.malformed_payload", zap.String("room", s.roomID), zap.Error(err))
			}
			return
		}

		n := s.reg.Broadcast(s.roomID, msg)
		zap.L().Debug("relay.broadcast",
			zap.String("room", s.roomID),
			zap.String("username", msg.Username),
			zap.Int("delivered", n),
		)
	}
}
