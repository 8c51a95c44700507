package embedding

import (
	"context"
	"errors"
	"time"

	"document-qa/internal/models"

	"github.com/avast/retry-go/v4"
)

type retryEmbedder struct {
	inner    Embedder
	attempts uint
	delay    time.Duration
	timeout  time.Duration
}

// WithRetry wraps an embedder with a per-call timeout and a bounded
// exponential-backoff retry for transient failures. Once the attempt cap is
// exhausted the error surfaces as a PipelineError for the embed stage, so
// the caller can fail that chunk or turn without hanging.
func WithRetry(inner Embedder, attempts uint, delay, timeout time.Duration) Embedder {
	if attempts == 0 {
		attempts = 1
	}
	return &retryEmbedder{inner: inner, attempts: attempts, delay: delay, timeout: timeout}
}

func (e *retryEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := retry.Do(
		func() error {
			callCtx := ctx
			if e.timeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, e.timeout)
				defer cancel()
			}
			v, err := e.inner.Embed(callCtx, text)
			if err != nil {
				return err
			}
			vector = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(e.attempts),
		retry.Delay(e.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, context.Canceled)
		}),
	)
	if err != nil {
		return nil, &models.PipelineError{Stage: models.StageEmbed, Err: err}
	}
	return vector, nil
}

func (e *retryEmbedder) Model() string {
	return e.inner.Model()
}
