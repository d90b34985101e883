package render

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// Encoder serialises a frame.
type Encoder func(w io.Writer, f *Frame) error

// Recorder is an in-memory surface. It keeps at most Limit frames, dropping
// the oldest; a zero Limit keeps every frame.
type Recorder struct {
	Limit int

	mu     sync.Mutex
	frames []*Frame
	closed bool
}

// NewRecorder creates a recorder that keeps the last limit frames.
func NewRecorder(limit int) *Recorder {
	return &Recorder{Limit: limit}
}

// Draw stores a copy of f.
func (r *Recorder) Draw(f *Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f.Clone())
	if r.Limit > 0 && len(r.frames) > r.Limit {
		r.frames = r.frames[len(r.frames)-r.Limit:]
	}
	return nil
}

// Close marks the recorder as released. Frames stay readable.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// Closed reports whether the recorder was released by an unmount.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Len returns the number of kept frames.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Frames returns the kept frames, oldest first.
func (r *Recorder) Frames() []*Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Frame(nil), r.frames...)
}

// Last returns the most recent frame.
func (r *Recorder) Last() (*Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return nil, false
	}
	return r.frames[len(r.frames)-1], true
}

// FileSurface rewrites a file with every frame. The new content is written
// to a temporary file in the same directory and renamed over the target, so
// readers never see a partial frame. Files are created with mode 0600.
type FileSurface struct {
	path   string
	encode Encoder
	buf    bytes.Buffer
}

// NewFileSurface creates a surface writing to path with enc.
func NewFileSurface(path string, enc Encoder) *FileSurface {
	return &FileSurface{path: path, encode: enc}
}

// Path returns the target file.
func (s *FileSurface) Path() string {
	return s.path
}

// Draw encodes f and replaces the target file.
func (s *FileSurface) Draw(f *Frame) error {
	s.buf.Reset()
	if err := s.encode(&s.buf, f); err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(s.buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.path, err)
	}
	return nil
}

// StreamSurface writes every frame to w, one encoded frame after another.
// With EncodeJSON this yields JSON Lines.
type StreamSurface struct {
	mu     sync.Mutex
	w      io.Writer
	encode Encoder
}

// NewStreamSurface creates a surface appending frames to w.
func NewStreamSurface(w io.Writer, enc Encoder) *StreamSurface {
	return &StreamSurface{w: w, encode: enc}
}

// Draw encodes f onto the stream.
func (s *StreamSurface) Draw(f *Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.encode(s.w, f)
}
