package repository

import (
	lru "github.com/hashicorp/golang-lru"
)

const DefaultSize = 10_000

// InMemRepository is a bounded, thread safe, least recently used store.
type InMemRepository struct {
	*lru.Cache
}

func NewInMemRepository(size int) (*InMemRepository, error) {
	if size <= 0 {
		size = DefaultSize
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &InMemRepository{
		Cache: cache,
	}, nil
}
