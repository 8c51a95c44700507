package embedding

import (
	"context"
	"errors"
	"testing"

	"document-qa/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyEmbedder struct {
	failures int
	calls    int
	err      error
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

func (f *flakyEmbedder) Model() string { return "flaky" }

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, err: errors.New("connection reset")}
	emb := WithRetry(inner, 3, 0, 0)

	vector, err := emb.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vector)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", emb.Model())
}

func TestRetryExhaustionIsPipelineError(t *testing.T) {
	transient := errors.New("connection reset")
	inner := &flakyEmbedder{failures: 100, err: transient}
	emb := WithRetry(inner, 3, 0, 0)

	_, err := emb.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, 3, inner.calls)

	var perr *models.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, models.StageEmbed, perr.Stage)
	assert.ErrorIs(t, err, transient)
}

func TestRetryDoesNotRetryCancellation(t *testing.T) {
	inner := &flakyEmbedder{failures: 100, err: context.Canceled}
	emb := WithRetry(inner, 5, 0, 0)

	_, err := emb.Embed(context.Background(), "some text")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls, "cancellation is terminal, not transient")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestZeroAttemptsMeansOneCall(t *testing.T) {
	inner := &flakyEmbedder{failures: 0}
	emb := WithRetry(inner, 0, 0, 0)

	_, err := emb.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}
