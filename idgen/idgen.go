// Package idgen hands out sequential identifiers. Every generator is
// independent, so two simulations built the same way number their packets the
// same way.
package idgen

import "sync/atomic"

// Generator produces unique identifiers of type T.
type Generator[T ~uint64] interface {
	Generate() T
	Last() T
}

// New returns a sequential generator whose first emitted ID is 1.
func New[T ~uint64]() Generator[T] {
	return &sequentialGenerator[T]{}
}

type sequentialGenerator[T ~uint64] struct {
	last atomic.Uint64
}

func (g *sequentialGenerator[T]) Generate() T {
	return T(g.last.Add(1))
}

func (g *sequentialGenerator[T]) Last() T {
	return T(g.last.Load())
}
