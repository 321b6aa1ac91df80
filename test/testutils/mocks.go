// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/stretchr/testify/mock"

	"github.com/alchemorsel/nutriplan/internal/domain/linprog"
	"github.com/alchemorsel/nutriplan/internal/domain/nutrition"
	"github.com/alchemorsel/nutriplan/internal/domain/shared"
)

// StaticCatalog is a fixed, concurrency-safe recipe catalog.
type StaticCatalog struct {
	mu       sync.RWMutex
	profiles []nutrition.Profile
	version  int64
	lists    atomic.Int64
}

// NewStaticCatalog creates a catalog at version 1.
func NewStaticCatalog(profiles ...nutrition.Profile) *StaticCatalog {
	return &StaticCatalog{profiles: profiles, version: 1}
}

// ListProfiles returns a copy of the profiles in insertion order.
func (c *StaticCatalog) ListProfiles(ctx context.Context) ([]nutrition.Profile, error) {
	c.lists.Add(1)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]nutrition.Profile(nil), c.profiles...), nil
}

// Version returns the current catalog version.
func (c *StaticCatalog) Version(ctx context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version, nil
}

// Replace swaps the profiles and bumps the version.
func (c *StaticCatalog) Replace(profiles ...nutrition.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = profiles
	c.version++
}

// ListCalls reports how many times ListProfiles ran.
func (c *StaticCatalog) ListCalls() int {
	return int(c.lists.Load())
}

// MockRecipeCatalog provides a mock implementation of RecipeCatalog
type MockRecipeCatalog struct {
	mock.Mock
}

// ListProfiles lists profiles
func (m *MockRecipeCatalog) ListProfiles(ctx context.Context) ([]nutrition.Profile, error) {
	args := m.Called(ctx)
	profiles, _ := args.Get(0).([]nutrition.Profile)
	return profiles, args.Error(1)
}

// Version returns the catalog version
func (m *MockRecipeCatalog) Version(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockLPSolver provides a mock implementation of LPSolver
type MockLPSolver struct {
	mock.Mock
}

// Solve solves a problem
func (m *MockLPSolver) Solve(problem *linprog.Problem) (*linprog.Solution, error) {
	args := m.Called(problem)
	sol, _ := args.Get(0).(*linprog.Solution)
	return sol, args.Error(1)
}

// MockEventPublisher provides a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish publishes an event
func (m *MockEventPublisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
