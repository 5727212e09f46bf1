package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"docconvert/internal/config"
	"docconvert/internal/domain"
	"docconvert/internal/domain/models"
	"docconvert/internal/domain/services"
	"docconvert/internal/storage"
)

// RetentionOptions controls where and how strictly retention copies are kept.
type RetentionOptions struct {
	Folder  string
	Policy  string // config.RetentionBestEffort or config.RetentionRequired
	Timeout time.Duration
}

// conversionService implements the ConversionService interface
type conversionService struct {
	converter services.Converter
	store     services.RemoteStore
	retention RetentionOptions
	logger    *slog.Logger
}

// NewConversionService creates a new conversion service
func NewConversionService(
	converter services.Converter,
	store services.RemoteStore,
	retention RetentionOptions,
	logger *slog.Logger,
) services.ConversionService {
	return &conversionService{
		converter: converter,
		store:     store,
		retention: retention,
		logger:    logger,
	}
}

// Convert reads the persisted upload, converts it to PDF, writes the artifact
// and keeps a retention copy. The caller owns job cleanup.
func (s *conversionService) Convert(ctx context.Context, job services.Job) (*models.Artifact, error) {
	if err := validateJob(job); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	document, err := os.ReadFile(job.UploadPath())
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	s.logger.Info("converting document",
		"file", job.OriginalName(),
		"bytes", len(document),
	)

	start := time.Now()
	pdf, err := s.converter.Convert(ctx, document)
	if err != nil {
		var convErr *domain.ConversionError
		if !errors.As(err, &convErr) {
			err = &domain.ConversionError{Message: err.Error(), Err: err}
		}
		return nil, err
	}

	if err := os.WriteFile(job.OutputPath(), pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	s.logger.Info("conversion successful",
		"file", job.OriginalName(),
		"output", job.OutputPath(),
		"bytes", len(pdf),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if err := s.retain(ctx, job.BaseName(), pdf); err != nil {
		return nil, err
	}

	return &models.Artifact{
		Filename: job.BaseName() + ".pdf",
		Path:     job.OutputPath(),
		Size:     int64(len(pdf)),
	}, nil
}

// retain uploads the retention copy. Under the best-effort policy a failure
// is logged and swallowed; under the required policy it is returned.
func (s *conversionService) retain(ctx context.Context, key string, pdf []byte) error {
	// A client that hangs up after conversion should not cancel the upload
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.retention.Timeout)
	defer cancel()

	receipt, err := s.store.Put(ctx, key, s.retention.Folder, pdf)
	switch {
	case errors.Is(err, storage.ErrDisabled):
		s.logger.Debug("retention skipped", "reason", err.Error())
		return nil
	case err != nil:
		if s.retention.Policy == config.RetentionRequired {
			s.logger.Error("retention upload failed", "store", s.store.Name(), "key", key, "error", err)
			return err
		}
		s.logger.Warn("retention upload failed, continuing", "store", s.store.Name(), "key", key, "error", err)
		return nil
	}

	s.logger.Info("retention copy stored",
		"store", s.store.Name(),
		"key", receipt.Key,
		"folder", receipt.Folder,
	)
	return nil
}

func validateJob(job services.Job) error {
	return validation.Errors{
		"filename":    validation.Validate(job.OriginalName(), validation.Required, validation.Length(1, config.MaxFilenameLength)),
		"upload_path": validation.Validate(job.UploadPath(), validation.Required),
		"output_path": validation.Validate(job.OutputPath(), validation.Required),
	}.Filter()
}
