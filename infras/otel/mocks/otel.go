package mocks

import (
	"context"
	"sync"

	"lodge/infras/otel"
)

// Otel hands out recording scopes keyed by span name.
type Otel struct {
	mu     sync.Mutex
	scopes map[string]*Scope
}

func (o *Otel) NewScope(ctx context.Context, _, spanName string) (context.Context, otel.Scope) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.scopes == nil {
		o.scopes = map[string]*Scope{}
	}

	scope := &Scope{}
	o.scopes[spanName] = scope

	return ctx, scope
}

// Scope returns the last scope opened under spanName.
func (o *Otel) Scope(spanName string) (*Scope, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	scope, ok := o.scopes[spanName]

	return scope, ok
}

func (o *Otel) Shutdown(_ context.Context) error {
	return nil
}

func NewOtel() otel.Otel {
	return &Otel{}
}
