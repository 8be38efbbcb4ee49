package mocks

import (
	"sync"

	"lodge/infras/otel"
)

// Scope records what was traced so tests can assert on it.
type Scope struct {
	mu         sync.Mutex
	Events     []string
	Errors     []error
	Attributes map[string]any
	Ended      bool
}

func (s *Scope) AddEvent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Events = append(s.Events, name)
}

func (s *Scope) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Ended = true
}

func (s *Scope) SetAttribute(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Attributes == nil {
		s.Attributes = map[string]any{}
	}

	s.Attributes[key] = value
}

func (s *Scope) SetAttributes(attributes map[string]any) {
	for key, value := range attributes {
		s.SetAttribute(key, value)
	}
}

func (s *Scope) TraceError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Errors = append(s.Errors, err)
}

func (s *Scope) TraceIfError(err error) {
	if err != nil {
		s.TraceError(err)
	}
}

func NewScope() otel.Scope {
	return &Scope{}
}
