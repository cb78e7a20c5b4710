package appctx

import (
	"context"

	"github.com/google/uuid"
)

type ctxKey string

const participantIDKey ctxKey = "participantID"

// WithParticipantID stores the visitor's participant id in the context.
func WithParticipantID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, participantIDKey, id)
}

// ParticipantID extracts the participant id from the context.
func ParticipantID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(participantIDKey).(uuid.UUID)
	return id, ok
}
