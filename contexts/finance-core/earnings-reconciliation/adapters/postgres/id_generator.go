package postgresadapter

import (
	"context"

	"github.com/google/uuid"
)

// UUIDGenerator issues v4 ids for samples, requests, history rows and events.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
