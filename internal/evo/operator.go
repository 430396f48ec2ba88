package evo

import (
	"context"

	"statforge/internal/model"
)

// Operator derives a child allocation from a parent. Implementations must
// return a fresh allocation and leave parent untouched.
type Operator interface {
	Name() string
	Apply(ctx context.Context, parent model.Allocation) (model.Allocation, error)
}
