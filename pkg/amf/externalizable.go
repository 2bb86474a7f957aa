package amf

import "sync"

// ExternalizableReader decodes the body of an externalizable class. It is
// invoked immediately after the trait header (and class name) have been
// read, with d positioned at the start of the opaque body, and must return
// the decoded value.
type ExternalizableReader func(d *Amf3Decoder) (Value, error)

// ExternalizableWriter encodes the body of an externalizable class into e,
// given the value previously produced by the matching reader (or supplied
// directly by a caller building a value tree for encode).
type ExternalizableWriter func(e *Amf3Encoder, v Value) error

type externalizableEntry struct {
	read  ExternalizableReader
	write ExternalizableWriter
}

// ExternalizableRegistry is a process-wide, read-mostly mapping from
// ActionScript class name to a reader/writer pair. Callers configure it
// before decoding and must not mutate it concurrently with active decodes —
// the registry itself is safe for concurrent reads via RWMutex, but the
// contract is "configure once at startup", not "mutate under load".
type ExternalizableRegistry struct {
	mu      sync.RWMutex
	entries map[string]externalizableEntry
}

// NewExternalizableRegistry creates an empty registry.
func NewExternalizableRegistry() *ExternalizableRegistry {
	return &ExternalizableRegistry{entries: make(map[string]externalizableEntry)}
}

// Register associates className with a reader and writer. A nil reader
// means decode of that class always fails with ErrExternalizableNotRegistered;
// a nil writer means encode of that class requires the caller to supply
// Object.ExternalizablePayload directly.
func (reg *ExternalizableRegistry) Register(className string, reader ExternalizableReader, writer ExternalizableWriter) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.entries[className] = externalizableEntry{read: reader, write: writer}
}

func (reg *ExternalizableRegistry) reader(className string) (ExternalizableReader, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.entries[className]
	if !ok || e.read == nil {
		return nil, false
	}
	return e.read, true
}

func (reg *ExternalizableRegistry) writer(className string) (ExternalizableWriter, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	e, ok := reg.entries[className]
	if !ok || e.write == nil {
		return nil, false
	}
	return e.write, true
}

// defaultRegistry is used by the package-level Decode/Encode helpers when
// callers don't supply their own via Options.
var defaultRegistry = NewExternalizableRegistry()

// Register adds a reader/writer pair to the package-level default registry.
func Register(className string, reader ExternalizableReader, writer ExternalizableWriter) {
	defaultRegistry.Register(className, reader, writer)
}
