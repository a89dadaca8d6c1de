package logging

import (
	"os"
	"sync"
)

const logFileMode = 0o644

// sizeLimitedWriter appends to a file and empties it in place once the next
// write would cross limit. Old lines are dropped rather than rotated.
type sizeLimitedWriter struct {
	mu    sync.Mutex
	path  string
	limit int64
	f     *os.File
	size  int64
	wraps int
}

func newSizeLimitedWriter(path string, maxMB int) (*sizeLimitedWriter, error) {
	if maxMB <= 0 {
		maxMB = 10
	}
	return newSizeLimitedWriterBytes(path, int64(maxMB)<<20)
}

func newSizeLimitedWriterBytes(path string, limit int64) (*sizeLimitedWriter, error) {
	w := &sizeLimitedWriter{path: path, limit: limit}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write reports len(p) on success even when only the tail of an oversized
// record fits.
func (w *sizeLimitedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		if err := w.openLocked(); err != nil {
			return 0, err
		}
	}
	if w.size+int64(len(p)) > w.limit {
		if err := w.f.Truncate(0); err != nil {
			return 0, err
		}
		w.size = 0
		w.wraps++
	}
	tail := p
	if over := int64(len(p)) - w.limit; over > 0 {
		tail = p[over:]
	}
	n, err := w.f.Write(tail)
	w.size += int64(n)
	if err != nil {
		return n, err
	}
	return len(p), nil
}

// Truncations counts how many times the file was emptied.
func (w *sizeLimitedWriter) Truncations() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wraps
}

// Close releases the file; a later Write reopens it.
func (w *sizeLimitedWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}

func (w *sizeLimitedWriter) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, logFileMode)
	if err != nil {
		return err
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.size = f, st.Size()
	return nil
}
