// Package id allocates short alphanumeric paste identifiers.
package id

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	alphabet       = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	floorStart     = 2
	maxLength      = 32
	drawsPerLength = 10
)

// ErrExhausted is returned when no unused ID could be found at any length up
// to the cap.
var ErrExhausted = errors.New("no ID available")

// ExistenceChecker is the slice of the paste store the generator needs.
type ExistenceChecker interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Generator draws random candidates starting at a floor length of 2 and,
// when a short length looks saturated, ratchets the floor up so later calls
// stop probing it. The floor never lowers.
type Generator struct {
	store ExistenceChecker

	mu    sync.Mutex
	floor int
}

// New returns a Generator checking candidates against store.
func New(store ExistenceChecker) *Generator {
	return &Generator{store: store, floor: floorStart}
}

// Generate returns an ID that did not exist in the store at the moment of
// the check. Callers that go on to write must hold whatever lock makes the
// check-then-write sequence atomic; Generate itself only serializes access
// to the floor.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for length := g.floor; length <= maxLength; length++ {
		for attempt := 0; attempt < drawsPerLength; attempt++ {
			candidate, err := gonanoid.Generate(alphabet, length)
			if err != nil {
				return "", fmt.Errorf("draw candidate: %w", err)
			}
			taken, err := g.store.Exists(ctx, candidate)
			if err != nil {
				return "", fmt.Errorf("check candidate: %w", err)
			}
			if taken {
				continue
			}
			if length > g.floor {
				g.floor = length
			}
			return candidate, nil
		}
	}
	return "", ErrExhausted
}

// Floor reports the current minimum candidate length.
func (g *Generator) Floor() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.floor
}
