package client

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// TerminalView prints status changes as lines. Control enablement has no
// terminal rendering and is only recorded.
type TerminalView struct {
	mu  sync.Mutex
	out io.Writer

	last           string
	convertEnabled bool
	inputEnabled   bool
}

// NewTerminalView writes status lines to out.
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out}
}

func (v *TerminalView) SetStatus(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	// Repeated statuses come from re-rendering the same state
	if text == v.last {
		return
	}
	v.last = text
	fmt.Fprintln(v.out, text)
}

func (v *TerminalView) SetConvertEnabled(enabled bool) {
	v.mu.Lock()
	v.convertEnabled = enabled
	v.mu.Unlock()
}

func (v *TerminalView) SetFileInputEnabled(enabled bool) {
	v.mu.Lock()
	v.inputEnabled = enabled
	v.mu.Unlock()
}

func (v *TerminalView) ShowDownload(name, ref string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "Saved %s to %s\n", name, ref)
}

func (v *TerminalView) HideDownload()   {}
func (v *TerminalView) ClearFileInput() {}

// ConvertEnabled reports whether the convert control is usable.
func (v *TerminalView) ConvertEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.convertEnabled
}

// DirSaver writes converted documents into a directory.
type DirSaver struct {
	Dir string
}

// Save writes data to Dir/name and returns the file path as the reference.
func (s DirSaver) Save(name string, data []byte) (string, error) {
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	path := filepath.Join(s.Dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Release keeps the file; it is the user's download.
func (DirSaver) Release(string) {}
