package buf

import "errors"

// ErrOverflow is returned by BoundedWriter.Write when appending would exceed
// the writer's fixed capacity. Callers release the writer, allocate a new
// one at roughly double the capacity, and retry the whole write — this is
// the scratch-buffer growth pattern the Remoting packet assembler uses to
// bound a single packet's assembly memory (see MaxScratchSize).
var ErrOverflow = errors.New("buf: scratch buffer capacity exceeded")

// MaxScratchSize is the hard ceiling a BoundedWriter's capacity may not
// exceed; a caller whose doubling retry would cross it fails instead.
const MaxScratchSize = 16 << 20 // 16 MiB

// BoundedWriter is a fixed-capacity scratch buffer: it never grows on its
// own, and signals ErrOverflow instead, so a caller assembling a
// length-bounded structure (a Remoting packet) can detect "too small" and
// retry at a larger, still-bounded capacity rather than growing without
// limit.
type BoundedWriter struct {
	buf *Buffer
	n   int
}

// NewBoundedWriter returns a writer backed by a pooled buffer of capacity
// bytes.
func NewBoundedWriter(capacity int) *BoundedWriter {
	return &BoundedWriter{buf: NewPooled(capacity)}
}

func (w *BoundedWriter) Write(p []byte) (int, error) {
	if w.n+len(p) > w.buf.Len() {
		return 0, ErrOverflow
	}
	if w.n+len(p) > len(w.buf.data) {
		w.buf.data = w.buf.data[:w.n+len(p)]
	}
	copy(w.buf.data[w.n:], p)
	w.n += len(p)
	return len(p), nil
}

func (w *BoundedWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// Bytes returns the bytes written so far.
func (w *BoundedWriter) Bytes() []byte { return w.buf.Data()[:w.n] }

// Len returns the number of bytes written so far.
func (w *BoundedWriter) Len() int { return w.n }

// Cap returns the writer's fixed capacity.
func (w *BoundedWriter) Cap() int { return w.buf.Len() }

// Reset clears the writer for reuse without releasing its backing buffer.
func (w *BoundedWriter) Reset() { w.n = 0 }

// Release returns the backing buffer to its pool tier.
func (w *BoundedWriter) Release() { w.buf.Release() }
