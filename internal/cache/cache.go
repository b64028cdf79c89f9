// Package cache is keyed blob storage with pluggable backends. The sync
// pipeline's default store persists catalog entities through it.
package cache

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound      = errors.New("cache: key not found")
	ErrAlreadyExists = errors.New("cache: key already exists")
)

type PutCondition int

const (
	PutAlways PutCondition = iota
	// PutIfNoneMatch fails with ErrAlreadyExists when the key is already present.
	PutIfNoneMatch
)

type PutOptions struct {
	Condition PutCondition
}

// Cache stores opaque values by key. PutIfNoneMatch must be atomic with
// respect to concurrent writers of the same key.
type Cache interface {
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key, value string, opts PutOptions) error
}

// ListCache adds prefix listing. Returned keys have the prefix trimmed.
type ListCache interface {
	Cache
	List(ctx context.Context, prefix string) ([]string, error)
}
