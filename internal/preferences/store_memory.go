package preferences

import (
	"context"
	"sync"

	dErrors "github.com/authelia/authelia-sub004/pkg/domain-errors"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	methods     map[string]Method
	subscribers []func(string, Method)
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{methods: make(map[string]Method)}
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (Method, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	method, ok := s.methods[userID]
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "no method preference recorded")
	}
	return method, nil
}

func (s *InMemoryStore) Set(_ context.Context, userID string, method Method) error {
	if _, err := ParseMethod(string(method)); err != nil {
		return err
	}

	s.mu.Lock()
	s.methods[userID] = method
	subscribers := append([]func(string, Method){}, s.subscribers...)
	s.mu.Unlock()

	for _, notify := range subscribers {
		notify(userID, method)
	}
	return nil
}

func (s *InMemoryStore) Subscribe(notify func(userID string, method Method)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, notify)
}
