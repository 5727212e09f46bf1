// Package converter implements services.Converter on top of a headless
// LibreOffice (soffice) binary.
package converter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"docconvert/internal/domain"
)

// inputName is the file soffice reads inside the per-run directory. The
// .docx suffix selects the import filter when content sniffing is ambiguous.
const inputName = "input.docx"

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	// Run executes name with args and returns combined stdout and stderr.
	Run(ctx context.Context, name string, args []string) ([]byte, error)
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (osExecutor) Run(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.Bytes(), err
}

// LibreOffice converts documents to PDF by shelling out to soffice.
type LibreOffice struct {
	binary  string
	timeout time.Duration
	workDir string // parent of per-run directories, os.TempDir() when empty
	exec    executor
	logger  *slog.Logger
}

// NewLibreOffice returns a converter that runs binary with the given timeout.
func NewLibreOffice(binary string, timeout time.Duration, logger *slog.Logger) *LibreOffice {
	return &LibreOffice{
		binary:  binary,
		timeout: timeout,
		exec:    osExecutor{},
		logger:  logger,
	}
}

// Check reports whether the soffice binary can be found.
func (lo *LibreOffice) Check() error {
	if _, err := lo.exec.LookPath(lo.binary); err != nil {
		return fmt.Errorf("libreoffice binary %q: %w", lo.binary, err)
	}
	return nil
}

// Convert implements services.Converter. Each run gets its own directory and
// LibreOffice profile so concurrent conversions never share lock files.
func (lo *LibreOffice) Convert(ctx context.Context, document []byte) ([]byte, error) {
	if len(document) == 0 {
		return nil, &domain.ConversionError{Message: "input document is empty"}
	}

	dir, err := os.MkdirTemp(lo.workDir, "soffice-")
	if err != nil {
		return nil, fmt.Errorf("create conversion directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			lo.logger.Warn("failed to remove conversion directory", "dir", dir, "error", err)
		}
	}()

	inputPath := filepath.Join(dir, inputName)
	if err := os.WriteFile(inputPath, document, 0o600); err != nil {
		return nil, fmt.Errorf("write conversion input: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, lo.timeout)
	defer cancel()

	args := []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(dir, "profile")),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", dir,
		inputPath,
	}

	start := time.Now()
	output, err := lo.exec.Run(ctx, lo.binary, args)
	diagnostics := strings.TrimSpace(string(output))
	if err != nil {
		return nil, lo.runError(ctx, err, diagnostics)
	}

	pdfPath := filepath.Join(dir, strings.TrimSuffix(inputName, filepath.Ext(inputName))+".pdf")
	pdf, err := os.ReadFile(pdfPath)
	if err != nil || len(pdf) == 0 {
		// soffice exits 0 when it can't load the source; its output says why
		msg := "conversion produced no output"
		if diagnostics != "" {
			msg = diagnostics
		}
		return nil, &domain.ConversionError{Message: msg, Err: err}
	}

	lo.logger.Debug("libreoffice conversion finished",
		"input_bytes", len(document),
		"output_bytes", len(pdf),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return pdf, nil
}

func (lo *LibreOffice) runError(ctx context.Context, err error, diagnostics string) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domain.ConversionError{
			Message: fmt.Sprintf("conversion timed out after %s", lo.timeout),
			Err:     ctx.Err(),
		}
	case errors.Is(err, exec.ErrNotFound):
		return &domain.ConversionError{
			Message: fmt.Sprintf("converter %q is not installed", lo.binary),
			Err:     err,
		}
	case diagnostics != "":
		return &domain.ConversionError{Message: diagnostics, Err: err}
	default:
		return &domain.ConversionError{Message: err.Error(), Err: err}
	}
}
