package domain

import "github.com/google/uuid"

// Session is the explicit per-session context passed into every pipeline call:
// who is asking (Identity, empty when anonymous) and where results accumulate.
type Session struct {
	ID       string
	Identity string
	Ledger   *Ledger
}

func NewSession(identity string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Identity: identity,
		Ledger:   NewLedger(),
	}
}

func (s *Session) Anonymous() bool {
	return s == nil || s.Identity == ""
}
