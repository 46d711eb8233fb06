// Package session acquires remote browser sessions for a profile and
// guarantees their release.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NotebookSync/internal/domain"
	"NotebookSync/internal/ports"
)

const releaseTimeout = 30 * time.Second

// Manager wraps a profile controller with scoped acquisition.
type Manager struct {
	profiles ports.ProfileController
	logger   *slog.Logger
}

// NewManager builds a session manager.
func NewManager(profiles ports.ProfileController, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{profiles: profiles, logger: logger}
}

// Acquire starts the browser for profile and returns its connection endpoint.
// Failures are reported as domain.ErrSessionUnavailable and never retried.
func (m *Manager) Acquire(ctx context.Context, profile string, headless bool) (string, error) {
	if m.profiles == nil {
		return "", fmt.Errorf("%w: profile controller is not configured", domain.ErrSessionUnavailable)
	}

	if active, err := m.profiles.IsActive(ctx, profile); err == nil && active {
		m.logger.Warn("profile already active; another run may own it", "profile", profile)
	}

	endpoint, err := m.profiles.Start(ctx, profile, headless)
	if err != nil {
		return "", fmt.Errorf("%w: profile %s: %v", domain.ErrSessionUnavailable, profile, err)
	}
	if endpoint == "" {
		return "", fmt.Errorf("%w: profile %s: empty endpoint", domain.ErrSessionUnavailable, profile)
	}

	m.logger.Info("session acquired", "profile", profile, "headless", headless)
	return endpoint, nil
}

// IsActive reports whether the profile's browser is running.
func (m *Manager) IsActive(ctx context.Context, profile string) bool {
	if m.profiles == nil {
		return false
	}
	active, err := m.profiles.IsActive(ctx, profile)
	if err != nil {
		m.logger.Warn("profile status check failed", "profile", profile, "error", err)
		return false
	}
	return active
}

// Release stops the profile's browser. Failures are logged, never returned.
func (m *Manager) Release(ctx context.Context, profile string) bool {
	if m.profiles == nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	ok, err := m.profiles.Stop(ctx, profile)
	switch {
	case err != nil:
		m.logger.Error("session release failed", "profile", profile, "error", err)
		return false
	case !ok:
		m.logger.Error("session release rejected", "profile", profile)
		return false
	}

	m.logger.Info("session released", "profile", profile)
	return true
}

// With acquires a session, runs fn with its endpoint and releases the session
// on every exit path, including panics and cancellation.
func (m *Manager) With(ctx context.Context, profile string, headless bool, fn func(ctx context.Context, endpoint string) error) error {
	endpoint, err := m.Acquire(ctx, profile, headless)
	if err != nil {
		return err
	}
	defer m.Release(ctx, profile)

	return fn(ctx, endpoint)
}
