// Package location abstracts the device location provider used by the
// points screen.
package location

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/config"
	"github.com/1F47E/ecoleta-points/pkg/models"
)

// Permission is the answer to a location permission request
type Permission int

const (
	Denied Permission = iota
	Granted
)

func (p Permission) String() string {
	if p == Granted {
		return "granted"
	}
	return "denied"
}

// ErrNoFix is returned when the provider cannot produce a position
var ErrNoFix = errors.New("no position fix")

// Provider asks for location permission and reads the current position once
type Provider interface {
	RequestPermission(ctx context.Context) (Permission, error)
	CurrentPosition(ctx context.Context) (models.Coordinate, error)
}

// Static answers from fixed values. A terminal has no GPS, so the CLI
// configures one of these.
type Static struct {
	Permission  Permission
	Position    models.Coordinate
	Unavailable bool
	// Delay simulates the latency of a real provider
	Delay time.Duration
}

// NewStatic builds a static provider from the location config section
func NewStatic(cfg config.LocationConfig) *Static {
	perm := Denied
	if cfg.Permission == "granted" {
		perm = Granted
	}
	return &Static{
		Permission:  perm,
		Position:    models.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
		Unavailable: cfg.Unavailable,
		Delay:       time.Duration(cfg.Delay) * time.Millisecond,
	}
}

func (s *Static) RequestPermission(ctx context.Context) (Permission, error) {
	if err := s.wait(ctx); err != nil {
		return Denied, err
	}
	return s.Permission, nil
}

func (s *Static) CurrentPosition(ctx context.Context) (models.Coordinate, error) {
	if err := s.wait(ctx); err != nil {
		return models.Coordinate{}, err
	}
	if s.Unavailable {
		return models.Coordinate{}, fmt.Errorf("static provider: %w", ErrNoFix)
	}
	return s.Position, nil
}

func (s *Static) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
