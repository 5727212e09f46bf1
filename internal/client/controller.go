// Package client drives a document conversion from the user's side. The
// View and Saver seams let the same controller back a terminal or any other
// front end.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// ResetDelay is how long a successful result stays on screen.
const ResetDelay = 3 * time.Second

// Status texts shown to the user.
const (
	StatusPrompt         = "Choose your document and hit convert with ease."
	StatusWrongType      = "Please select a .docx file for conversion."
	StatusNoFile         = "Please select a file first."
	StatusUnsupported    = "Only DOCX to PDF conversion is supported."
	StatusConverting     = "Uploading and converting... This may take a moment."
	StatusSuccess        = "Conversion successful! Your file is downloading."
	StatusNetworkFailure = "Conversion failed due to a network error or server issue!"
)

// Guard errors returned by OnConvertRequested before any request is made.
var (
	ErrNoFile      = errors.New("no file selected")
	ErrUnsupported = errors.New("only .docx files can be converted")
	ErrBusy        = errors.New("a conversion is already in progress")
)

// State is the controller's position in the conversion lifecycle.
type State int

const (
	StateIdle State = iota
	StateFileValid
	StateFileInvalid
	StateConverting
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFileValid:
		return "file-selected-valid"
	case StateFileInvalid:
		return "file-selected-invalid"
	case StateConverting:
		return "converting"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// File is a document the user picked.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// LocalFile returns a File backed by path.
func LocalFile(path string) *File {
	return &File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// View renders controller state.
type View interface {
	SetStatus(text string)
	SetConvertEnabled(enabled bool)
	SetFileInputEnabled(enabled bool)
	ShowDownload(name, ref string)
	HideDownload()
	ClearFileInput()
}

// Saver keeps a converted PDF and returns a reference the View can offer
// for download. Release drops the reference.
type Saver interface {
	Save(name string, data []byte) (ref string, err error)
	Release(ref string)
}

// Converter uploads a file and returns the converted bytes.
type Converter interface {
	Convert(ctx context.Context, file *File) ([]byte, error)
}

// Controller is the client-side conversion state machine. Its methods are
// safe to call from multiple goroutines.
type Controller struct {
	view       View
	saver      Saver
	converter  Converter
	resetDelay time.Duration
	afterFunc  func(d time.Duration, f func())

	mu    sync.Mutex
	state State
	file  *File
	// generation invalidates a pending reset when a newer cycle starts
	generation int
}

// Option configures a Controller.
type Option func(*Controller)

// WithResetDelay overrides ResetDelay.
func WithResetDelay(d time.Duration) Option {
	return func(c *Controller) { c.resetDelay = d }
}

// NewController returns a controller in the idle state and renders it.
func NewController(view View, saver Saver, converter Converter, opts ...Option) *Controller {
	c := &Controller{
		view:       view,
		saver:      saver,
		converter:  converter,
		resetDelay: ResetDelay,
		afterFunc:  func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnFileSelected reacts to the file input changing. nil means the selection
// was cleared. Selections made while a conversion or its result is on
// screen are ignored, matching the disabled file input.
func (c *Controller) OnFileSelected(file *File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConverting || c.state == StateSuccess {
		return
	}
	c.file = file
	c.selectLocked()
}

// OnConvertRequested uploads the selected file. It returns after the
// request resolves; the returned error mirrors what the View was told.
func (c *Controller) OnConvertRequested(ctx context.Context) error {
	c.mu.Lock()
	file := c.file
	switch {
	case c.state == StateConverting || c.state == StateSuccess:
		// Both states keep the convert control disabled
		c.mu.Unlock()
		return ErrBusy
	case file == nil:
		c.view.SetStatus(StatusNoFile)
		c.mu.Unlock()
		return ErrNoFile
	case !IsDocx(file.Name):
		c.view.SetStatus(StatusUnsupported)
		c.mu.Unlock()
		return ErrUnsupported
	}

	c.state = StateConverting
	c.generation++
	c.view.SetConvertEnabled(false)
	c.view.SetFileInputEnabled(false)
	c.view.HideDownload()
	c.view.SetStatus(StatusConverting)
	c.mu.Unlock()

	pdf, err := c.converter.Convert(ctx, file)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.failLocked(err)
		return err
	}

	name := DownloadName(file.Name)
	ref, err := c.saver.Save(name, pdf)
	if err != nil {
		c.failLocked(err)
		return err
	}

	c.state = StateSuccess
	c.view.ShowDownload(name, ref)
	c.view.SetStatus(StatusSuccess)

	generation := c.generation
	c.afterFunc(c.resetDelay, func() {
		c.saver.Release(ref)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation == generation && c.state == StateSuccess {
			c.resetLocked()
		}
	})
	return nil
}

// failLocked shows the failure and lets the user retry or pick another file.
func (c *Controller) failLocked(err error) {
	var (
		serverErr *ServerError
		status    string
	)
	switch {
	case errors.As(err, &serverErr):
		status = "Conversion failed! " + serverErr.Message
	case errors.As(err, new(*TransportError)):
		status = StatusNetworkFailure
	default:
		status = "Conversion failed! " + err.Error()
	}

	c.view.SetFileInputEnabled(true)
	c.selectLocked()
	c.state = StateError
	c.view.SetStatus(status)
}

// selectLocked re-evaluates controls for the current file.
func (c *Controller) selectLocked() {
	c.view.SetConvertEnabled(false)
	c.view.HideDownload()

	if c.file == nil {
		c.resetLocked()
		return
	}

	if IsDocx(c.file.Name) {
		c.state = StateFileValid
		c.view.SetStatus("Selected: " + c.file.Name)
		c.view.SetConvertEnabled(true)
		return
	}

	c.state = StateFileInvalid
	c.view.SetStatus(StatusWrongType)
}

func (c *Controller) resetLocked() {
	c.state = StateIdle
	c.file = nil
	c.view.ClearFileInput()
	c.view.SetFileInputEnabled(true)
	c.view.SetConvertEnabled(false)
	c.view.SetStatus(StatusPrompt)
	c.view.HideDownload()
}

// IsDocx reports whether name has a .docx extension, ignoring case.
func IsDocx(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".docx")
}

// DownloadName replaces the extension of name with .pdf. A name that is
// only an extension becomes "document.pdf", as the server names it.
func DownloadName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}
