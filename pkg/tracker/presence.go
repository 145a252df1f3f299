package tracker

import "time"

// presenceState remembers the last notified status so that repeated
// observations of the same state stay quiet.
type presenceState struct {
	state PresenceState
	at    time.Time
}

// observe records p and reports whether it is a transition worth notifying.
// Unknown states (hidden, "recently" and so on) never change the record.
func (s *presenceState) observe(p Presence, at time.Time) bool {
	if p.State == PresenceUnknown || p.State == s.state {
		return false
	}
	s.state = p.State
	s.at = at
	return true
}
