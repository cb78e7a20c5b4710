package models

import (
	"strings"

	"github.com/google/uuid"
)

// ChatStatus is the lifecycle of a visitor's chat session.
type ChatStatus string

const (
	StatusWaiting ChatStatus = "waiting"
	StatusMatched ChatStatus = "matched"
	StatusEnded   ChatStatus = "ended"
)

// Pair is a committed pairing. A holds the earlier ticket of the two
// (front of the waiting pool at the time of the read), which makes A's
// client the single dequeue owner.
type Pair struct {
	A Participant
	B Participant
}

func (p Pair) Contains(id uuid.UUID) bool {
	return p.A.ID == id || p.B.ID == id
}

// Other returns the partner of the given participant.
func (p Pair) Other(id uuid.UUID) uuid.UUID {
	if p.A.ID == id {
		return p.B.ID
	}
	return p.A.ID
}

func (p Pair) SessionID() string {
	return SessionID(p.A.ID, p.B.ID)
}

// SessionID derives the shared session identifier from two participant
// ids. Both sides compute it independently, so it must not depend on
// argument order: ids are sorted lexicographically before joining.
func SessionID(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	if strings.Compare(ids[0], ids[1]) > 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}
	return ids[0] + "-" + ids[1]
}
