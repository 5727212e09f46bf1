package services

import (
	"context"

	"docconvert/internal/domain/models"
)

// Converter turns an office document into PDF bytes.
// Failures are returned as *domain.ConversionError carrying the tool's diagnostics.
type Converter interface {
	Convert(ctx context.Context, document []byte) ([]byte, error)
}

// RemoteStore keeps retention copies of converted artifacts.
type RemoteStore interface {
	// Put uploads data under folder/key and returns what the store recorded.
	Put(ctx context.Context, key, folder string, data []byte) (*models.Receipt, error)

	// Name identifies the backend in logs
	Name() string
}

// Job is the scratch state of one conversion request.
type Job interface {
	// OriginalName is the client-supplied filename
	OriginalName() string
	// BaseName is OriginalName without its extension
	BaseName() string
	UploadPath() string
	OutputPath() string
}

// ConversionService runs one upload through conversion and retention.
type ConversionService interface {
	// Convert reads the job's persisted upload, converts it, writes the
	// artifact to the job's output path and stores the retention copy.
	Convert(ctx context.Context, job Job) (*models.Artifact, error)
}
