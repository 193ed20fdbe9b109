package opmanager

import (
	"context"
	"errors"
	"fmt"
	"gui-agent/internal/entity"
	"gui-agent/pkg/logg"
	"sync"
	"time"

	"go.uber.org/zap"
)

const registryName = "OperatorRegistry"

// Registry keeps one Manager per session so operators are never shared across sessions.
type Registry struct {
	factory     Factory
	logger      *zap.Logger
	initTimeout time.Duration

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry(factory Factory, logger *zap.Logger, initTimeout time.Duration) *Registry {
	return &Registry{
		factory:     factory,
		logger:      logger.With(zap.String(logg.Layer, registryName)),
		initTimeout: initTimeout,
		managers:    make(map[string]*Manager),
	}
}

func (r *Registry) Get(sessionID string) (*Manager, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.managers[sessionID]

	return m, ok
}

// Restore returns the session's manager for mode. A manager created for a different
// mode is closed and replaced.
func (r *Registry) Restore(ctx context.Context, sessionID string, mode entity.AgentMode) *Manager {
	r.mu.Lock()
	prev, ok := r.managers[sessionID]
	if ok && prev.GetMode() == mode {
		r.mu.Unlock()

		return prev
	}

	m := New(mode, r.factory, r.logger.With(zap.String(logg.SessionID, sessionID)), r.initTimeout)
	r.managers[sessionID] = m
	r.mu.Unlock()

	if ok {
		r.logger.Info("Session mode changed, replacing operator",
			zap.String(logg.SessionID, sessionID),
			zap.String(logg.Mode, string(mode.ID)),
		)

		if err := prev.Close(ctx); err != nil {
			r.logger.Warn("Failed to close previous operator", zap.String(logg.SessionID, sessionID), zap.Error(err))
		}
	}

	return m
}

func (r *Registry) Remove(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	m, ok := r.managers[sessionID]
	delete(r.managers, sessionID)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	return m.Close(ctx)
}

// Close disposes every session's operator.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	managers := r.managers
	r.managers = make(map[string]*Manager)
	r.mu.Unlock()

	var errs []error

	for id, m := range managers {
		if err := m.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", id, err))
		}
	}

	r.logger.Info("Operator registry closed", zap.Int("sessions", len(managers)))

	return errors.Join(errs...)
}
