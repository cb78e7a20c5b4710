package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Test_SessionID_Is_Order_Independent(t *testing.T) {
	req := require.New(t)

	a := uuid.New()
	b := uuid.New()

	req.Equal(SessionID(a, b), SessionID(b, a))
}

func Test_SessionID_Sorts_Ids_Lexicographically(t *testing.T) {
	req := require.New(t)

	a := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	b := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	id := SessionID(b, a)

	req.Equal(a.String()+"-"+b.String(), id)
	req.True(strings.HasPrefix(id, a.String()))
}

func Test_Pair_Other_Returns_The_Partner(t *testing.T) {
	req := require.New(t)

	a := Participant{ID: uuid.New()}
	b := Participant{ID: uuid.New()}
	pair := Pair{A: a, B: b}

	req.Equal(b.ID, pair.Other(a.ID))
	req.Equal(a.ID, pair.Other(b.ID))
	req.True(pair.Contains(a.ID))
	req.True(pair.Contains(b.ID))
	req.False(pair.Contains(uuid.New()))
}

func Test_Pair_SessionID_Matches_Derivation(t *testing.T) {
	req := require.New(t)

	a := Participant{ID: uuid.New()}
	b := Participant{ID: uuid.New()}

	req.Equal(SessionID(a.ID, b.ID), Pair{A: a, B: b}.SessionID())
	req.Equal(SessionID(a.ID, b.ID), Pair{A: b, B: a}.SessionID())
}
