package domain

import (
	"context"

	"github.com/google/uuid"
)

type intentIDKey struct{}

// WithIntentID tags ctx with the intent id so adapters can correlate calls
func WithIntentID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, intentIDKey{}, id)
}

// IntentIDFromContext returns the intent id set by WithIntentID
func IntentIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(intentIDKey{}).(uuid.UUID)
	return id, ok
}
