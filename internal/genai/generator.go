package genai

import "context"

// Generator produces free text from a single prompt. The chat pipeline treats
// the provider as a black box; both query synthesis and response composition
// go through this interface.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
