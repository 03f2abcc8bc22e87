package providers

import (
	"context"

	"github.com/adaptivekit/cost-router/internal/types"
)

// Adapter is the boundary to one downstream completion service. Implementations
// translate between the router's request shape and the provider SDK, and map
// SDK failures onto the router's failure kinds (see errors.go).
type Adapter interface {
	Name() string
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float32) (*types.Completion, error)
}
