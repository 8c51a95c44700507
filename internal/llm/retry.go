package llm

import (
	"context"
	"errors"
	"time"

	"document-qa/internal/models"

	"github.com/avast/retry-go/v4"
)

type retryGenerator struct {
	inner    Generator
	attempts uint
	delay    time.Duration
	timeout  time.Duration
}

// WithRetry mirrors the embedder's retry policy for generation calls:
// per-call timeout, capped attempts with exponential backoff, terminal
// failures typed as a generate-stage PipelineError.
func WithRetry(inner Generator, attempts uint, delay, timeout time.Duration) Generator {
	if attempts == 0 {
		attempts = 1
	}
	return &retryGenerator{inner: inner, attempts: attempts, delay: delay, timeout: timeout}
}

func (g *retryGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var answer string
	err := retry.Do(
		func() error {
			callCtx := ctx
			if g.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, g.timeout)
				defer cancel()
			}
			out, err := g.inner.Generate(callCtx, prompt)
			if err != nil {
				return err
			}
			answer = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(g.attempts),
		retry.Delay(g.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	)
	if err != nil {
		return "", &models.PipelineError{Stage: models.StageGenerate, Err: err}
	}
	return answer, nil
}
