// Package storage defines durable local storage: a small key/value store
// that survives process restarts.
//
// The session manager keeps exactly one key in it ("user"), but the contract
// is generic so tests and future callers can use other keys.
package storage

import "context"

// Store is a durable key/value store.
//
// Get returns an error matching apperror.ErrNotFound when the key is absent.
// Delete of an absent key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
