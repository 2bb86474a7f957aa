package buf

// Buffer is a single-owner byte buffer backed by a pooled allocation,
// returned to its tier's pool on Release. BoundedWriter is its only caller:
// a packet assembly owns exactly one scratch buffer at a time, so there is
// no shared-ownership case to justify reference counting here.
type Buffer struct {
	data    []byte
	release func([]byte)
}

// NewPooled returns a Buffer backed by a pooled allocation of size bytes,
// released back to its tier's pool on Release.
func NewPooled(size int) *Buffer {
	return &Buffer{data: alloc(size), release: free}
}

func (b *Buffer) Data() []byte { return b.data }
func (b *Buffer) Len() int     { return len(b.data) }
func (b *Buffer) Cap() int     { return cap(b.data) }

// Release returns the backing array to its pool tier. The Buffer must not
// be used afterward.
func (b *Buffer) Release() {
	if b.release != nil {
		b.release(b.data)
	}
}
