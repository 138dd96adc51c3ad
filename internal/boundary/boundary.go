// Package boundary isolates presentation failures from the core. A Boundary
// runs a render function, and if it fails or panics, shows a fixed notice
// instead until Retry is called. Selection state is never touched.
package boundary

import (
	"bytes"
	"fmt"
	"io"
	"runtime/debug"
	"sync"

	"github.com/gxo-labs/visacheck/internal/logger"
	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
)

// Notice is the fallback content shown after a failure.
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// DefaultNotice is shown when no custom fallback is configured.
var DefaultNotice = Notice{
	Title:   "Something went wrong",
	Message: "We encountered an unexpected error. Please try again.",
	Action:  "Try Again",
}

// RenderFunc writes a view to w.
type RenderFunc func(w io.Writer) error

// PanicError wraps a value recovered from a panicking render.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("render panicked: %v", e.Value)
}

// Boundary supervises render functions.
type Boundary struct {
	log    vclog.Logger
	notice Notice

	mu     sync.Mutex
	failed bool
	err    error
}

// Option configures a Boundary.
type Option func(*Boundary)

// WithNotice replaces the fallback content.
func WithNotice(n Notice) Option {
	return func(b *Boundary) { b.notice = n }
}

// New creates a Boundary. A nil log discards failure reports.
func New(log vclog.Logger, opts ...Option) *Boundary {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	b := &Boundary{log: log.With("component", "ErrorBoundary"), notice: DefaultNotice}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Render runs fn and copies its output to w. Output of a failed render is
// discarded and the notice is written instead. While the boundary is in the
// failed state fn is not called at all. The returned error is only a write
// error on w.
func (b *Boundary) Render(w io.Writer, fn RenderFunc) error {
	if b.Failed() {
		return b.writeNotice(w)
	}

	var buf bytes.Buffer
	if err := b.run(&buf, fn); err != nil {
		b.mu.Lock()
		b.failed = true
		b.err = err
		b.mu.Unlock()
		b.log.Errorf("ErrorBoundary caught an error: %v", err)
		return b.writeNotice(w)
	}
	_, err := buf.WriteTo(w)
	return err
}

func (b *Boundary) run(w io.Writer, fn RenderFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn(w)
}

func (b *Boundary) writeNotice(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s\n%s\n", b.notice.Title, b.notice.Message)
	return err
}

// Failed reports whether the boundary is showing the notice.
func (b *Boundary) Failed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failed
}

// Err returns the failure that tripped the boundary, if any.
func (b *Boundary) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Notice returns the configured fallback content.
func (b *Boundary) Notice() Notice {
	return b.notice
}

// Retry clears the failure so the next Render calls the render function again.
func (b *Boundary) Retry() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = false
	b.err = nil
}
