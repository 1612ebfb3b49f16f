package ports

import (
	"context"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Generator produces the natural-language response text for a turn from an
// assembled prompt. Implementations never return an error to the caller: on
// timeout or transport failure they fall back to a deterministic canned
// response, set Source to domain.SourceFallback, and record the diagnostic
// in Err. A turn must always get a response.
type Generator interface {
	Generate(ctx context.Context, prompt string) *domain.GenerationResult
}
