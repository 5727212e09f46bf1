// Package storage provides the remote retention backends behind
// services.RemoteStore.
package storage

import (
	"context"
	"errors"

	"docconvert/internal/domain/models"
)

// ErrDisabled is returned by Disabled.Put. Callers treat it as "nothing to do".
var ErrDisabled = errors.New("remote retention disabled")

// Disabled is the store used when no credentials are configured.
type Disabled struct{}

func (Disabled) Name() string { return "disabled" }

func (Disabled) Put(ctx context.Context, key, folder string, data []byte) (*models.Receipt, error) {
	return nil, ErrDisabled
}
