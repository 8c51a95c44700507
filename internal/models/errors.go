package models

import (
	"errors"
	"fmt"
)

// ErrStorageUnavailable marks the vector index as unreachable or corrupt.
// It is fatal for the current operation and is never retried.
var ErrStorageUnavailable = errors.New("vector store unavailable")

// PipelineStage names the step of a query turn or ingestion run that failed.
type PipelineStage string

const (
	StageExtract  PipelineStage = "extract"
	StageChunk    PipelineStage = "chunk"
	StageEmbed    PipelineStage = "embed"
	StageRetrieve PipelineStage = "retrieve"
	StageGenerate PipelineStage = "generate"
)

// PipelineError is a terminal failure of an external call (embedding or
// generation) after the retry budget is exhausted, or of a retrieval step.
// It aborts the current turn or document only; prior history and previously
// ingested documents are untouched.
type PipelineError struct {
	Stage PipelineStage
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ExtractionError reports an unreadable or corrupt source document. The
// ingestion driver logs it per file and continues with the batch.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConfigMismatchError means the persisted index was built with a different
// embedding model than the current configuration. Proceeding would mix
// embedding spaces, so this is fatal at startup.
type ConfigMismatchError struct {
	Stored     string
	Configured string
}

func (e *ConfigMismatchError) Error() string {
	return fmt.Sprintf("embedding model mismatch: index was built with %q, config requests %q", e.Stored, e.Configured)
}
