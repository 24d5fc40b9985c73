// Package proposal obtains untrusted session proposals from an external generator.
// Every item it returns is re-checked by the planner before use.
package proposal

import (
	"context"

	"github.com/noah-isme/study-planner-api/internal/planner"
)

// Source proposes sessions for a request. A nil slice or an error both mean
// "no proposal"; callers fall back to deterministic allocation.
type Source interface {
	Propose(ctx context.Context, req planner.Request) ([]planner.RawSession, error)
	Enabled() bool
}

// Disabled is used when no generator is configured.
type Disabled struct{}

// Propose always returns no proposal.
func (Disabled) Propose(context.Context, planner.Request) ([]planner.RawSession, error) {
	return nil, nil
}

// Enabled reports false.
func (Disabled) Enabled() bool { return false }
