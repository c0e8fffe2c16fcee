// Package models declares the application's data models against the shared
// database handle. Registration is an explicit startup step and must run
// after the handle has been bound.
package models

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/hackathon/internal/adapter/postgres"
)

// Model binds a model name to the table that stores it.
type Model struct {
	Name  string
	Table string
}

// Definitions lists the models registered at startup.
var Definitions []Model

type Registry struct {
	handle *postgres.Handle
	models []Model
	byName map[string]Model
}

// Register binds defs to h. It fails with postgres.ErrUnbound when h has
// not been initialized yet.
func Register(h *postgres.Handle, defs ...Model) (*Registry, error) {
	if h == nil || !h.Bound() {
		return nil, fmt.Errorf("failed to register models: %w", postgres.ErrUnbound)
	}

	r := &Registry{
		handle: h,
		byName: make(map[string]Model, len(defs)),
	}
	for _, m := range defs {
		if m.Name == "" || m.Table == "" {
			return nil, fmt.Errorf("model %q needs both a name and a table", m.Name)
		}
		if _, dup := r.byName[m.Name]; dup {
			return nil, fmt.Errorf("model %q registered twice", m.Name)
		}
		r.byName[m.Name] = m
		r.models = append(r.models, m)
	}

	slog.Info("Models registered", "count", len(r.models))
	return r, nil
}

func (r *Registry) Handle() *postgres.Handle {
	return r.handle
}

// Models returns the registered models in registration order.
func (r *Registry) Models() []Model {
	out := make([]Model, len(r.models))
	copy(out, r.models)
	return out
}

func (r *Registry) Lookup(name string) (Model, bool) {
	m, ok := r.byName[name]
	return m, ok
}

// Verify checks that the table of every registered model exists. It holds
// one connection for the duration of the check.
func (r *Registry) Verify(ctx context.Context) error {
	if len(r.models) == 0 {
		return nil
	}

	s := r.handle.NewSession()
	if err := s.Connect(ctx); err != nil {
		return err
	}
	defer s.Close()

	conn, err := s.Conn()
	if err != nil {
		return err
	}

	for _, m := range r.models {
		var exists bool
		if err := conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", m.Table).Scan(&exists); err != nil {
			return fmt.Errorf("failed to look up table %q: %w", m.Table, err)
		}
		if !exists {
			return fmt.Errorf("table %q for model %q does not exist", m.Table, m.Name)
		}
	}
	return nil
}
