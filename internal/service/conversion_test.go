package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docconvert/internal/config"
	"docconvert/internal/domain"
	"docconvert/internal/domain/models"
	"docconvert/internal/scratch"
	"docconvert/internal/storage"
)

type fakeConverter struct {
	output []byte
	err    error
	got    []byte
}

func (f *fakeConverter) Convert(ctx context.Context, document []byte) ([]byte, error) {
	f.got = document
	return f.output, f.err
}

type fakeStore struct {
	mu     sync.Mutex
	err    error
	puts   []string
	ctxErr error
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Put(ctx context.Context, key, folder string, data []byte) (*models.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, folder+"/"+key)
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return &models.Receipt{Key: key, Folder: folder, Bytes: int64(len(data))}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newJob(t *testing.T, name, content string) *scratch.Job {
	t.Helper()
	root := t.TempDir()
	ws, err := scratch.NewWorkspace(filepath.Join(root, "uploads"), filepath.Join(root, "converted"), discardLogger())
	require.NoError(t, err)

	job := ws.NewJob(name)
	_, err = job.SaveUpload(strings.NewReader(content))
	require.NoError(t, err)
	t.Cleanup(job.Cleanup)
	return job
}

func retention(policy string) RetentionOptions {
	return RetentionOptions{Folder: "converted_docs", Policy: policy, Timeout: time.Second}
}

func TestConversionService_Convert(t *testing.T) {
	conv := &fakeConverter{output: []byte("%PDF-1.7 report")}
	store := &fakeStore{}
	svc := NewConversionService(conv, store, retention(config.RetentionBestEffort), discardLogger())
	job := newJob(t, "report.docx", "PK docx")

	artifact, err := svc.Convert(context.Background(), job)

	require.NoError(t, err)
	assert.Equal(t, "report.pdf", artifact.Filename)
	assert.Equal(t, job.OutputPath(), artifact.Path)
	assert.Equal(t, int64(15), artifact.Size)
	assert.Equal(t, []byte("PK docx"), conv.got)
	assert.Equal(t, []string{"converted_docs/report"}, store.puts)

	written, err := os.ReadFile(job.OutputPath())
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.7 report"), written)
}

func TestConversionService_ConverterFailure(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantMessage string
	}{
		{"typed", &domain.ConversionError{Message: "source file could not be loaded"}, "source file could not be loaded"},
		{"untyped", errors.New("soffice crashed"), "soffice crashed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := NewConversionService(&fakeConverter{err: tt.err}, store, retention(config.RetentionBestEffort), discardLogger())
			job := newJob(t, "broken.docx", "not a docx")

			_, err := svc.Convert(context.Background(), job)

			var convErr *domain.ConversionError
			require.ErrorAs(t, err, &convErr)
			assert.Equal(t, tt.wantMessage, convErr.Message)
			assert.Empty(t, store.puts, "nothing retained after a failed conversion")
			assert.NoFileExists(t, job.OutputPath())
		})
	}
}

func TestConversionService_RetentionPolicy(t *testing.T) {
	storeErr := &domain.StorageError{Key: "report", Err: errors.New("quota exceeded")}

	t.Run("best-effort swallows failure", func(t *testing.T) {
		svc := NewConversionService(&fakeConverter{output: []byte("%PDF")}, &fakeStore{err: storeErr}, retention(config.RetentionBestEffort), discardLogger())

		artifact, err := svc.Convert(context.Background(), newJob(t, "report.docx", "PK"))

		require.NoError(t, err)
		assert.Equal(t, "report.pdf", artifact.Filename)
	})

	t.Run("required returns failure", func(t *testing.T) {
		svc := NewConversionService(&fakeConverter{output: []byte("%PDF")}, &fakeStore{err: storeErr}, retention(config.RetentionRequired), discardLogger())

		_, err := svc.Convert(context.Background(), newJob(t, "report.docx", "PK"))

		assert.ErrorIs(t, err, domain.ErrStorage)
	})

	t.Run("disabled store is skipped under required", func(t *testing.T) {
		svc := NewConversionService(&fakeConverter{output: []byte("%PDF")}, storage.Disabled{}, retention(config.RetentionRequired), discardLogger())

		_, err := svc.Convert(context.Background(), newJob(t, "report.docx", "PK"))

		assert.NoError(t, err)
	})
}

func TestConversionService_RetentionSurvivesCanceledRequest(t *testing.T) {
	store := &fakeStore{}
	svc := NewConversionService(&fakeConverter{output: []byte("%PDF")}, store, retention(config.RetentionBestEffort), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Convert(ctx, newJob(t, "report.docx", "PK"))

	require.NoError(t, err)
	assert.NoError(t, store.ctxErr)
}

func TestConversionService_MissingUpload(t *testing.T) {
	job := newJob(t, "report.docx", "PK")
	require.NoError(t, os.Remove(job.UploadPath()))
	svc := NewConversionService(&fakeConverter{output: []byte("%PDF")}, &fakeStore{}, retention(config.RetentionBestEffort), discardLogger())

	_, err := svc.Convert(context.Background(), job)

	assert.ErrorContains(t, err, "read upload")
}
