package amf

// ObjectEncoding selects which AMF version a top-level Decode/Encode call
// uses.
type ObjectEncoding int

const (
	// ObjectEncodingAMF0 decodes/encodes in AMF0, including its AVMPlus
	// bridge into AMF3 for individually-tagged values.
	ObjectEncodingAMF0 ObjectEncoding = 0
	// ObjectEncodingAMF3 decodes/encodes a bare AMF3 value with no AMF0
	// envelope around it at all.
	ObjectEncodingAMF3 ObjectEncoding = 3
	// ObjectEncodingAuto is decode-only: it starts in AMF0 and relies on
	// AVMPlus to switch, which is exactly ObjectEncodingAMF0's decode
	// behavior — the distinction exists for callers who want to say "I
	// don't know which encoding this wire blob uses" rather than "this is
	// AMF0".
	ObjectEncodingAuto ObjectEncoding = -1
)

// Options configures a top-level Decode or Encode call.
type Options struct {
	ObjectEncoding ObjectEncoding
	// Registry overrides the externalizable registry; nil uses the
	// package-level default registry populated via Register.
	Registry *ExternalizableRegistry
	// MaxAllocation overrides the cumulative decode allocation ceiling;
	// zero uses DefaultMaxAllocation. Ignored on encode.
	MaxAllocation int64
}

func (o Options) registry() *ExternalizableRegistry {
	if o.Registry != nil {
		return o.Registry
	}
	return defaultRegistry
}

func (o Options) maxAllocation() int64 {
	if o.MaxAllocation > 0 {
		return o.MaxAllocation
	}
	return DefaultMaxAllocation
}

// Decode decodes a single top-level value from buf under opts, returning
// the value and the number of bytes consumed. Every call gets fresh
// reference tables (Invariant 4) — it is not meant to be called repeatedly
// over one shared table; use DecodeAMF0Sequence/DecodeAMF3Sequence, or
// remoting.DecodePacket, for that.
func Decode(buf []byte, opts Options) (Value, int, error) {
	if opts.ObjectEncoding == ObjectEncodingAMF3 {
		d := NewAmf3Decoder(buf)
		d.SetRegistry(opts.registry())
		d.SetMaxAllocation(opts.maxAllocation())
		v, err := d.DecodeValue()
		return v, d.Pos(), err
	}
	d := NewAmf0Decoder(buf)
	d.SetRegistry(opts.registry())
	d.SetMaxAllocation(opts.maxAllocation())
	v, err := d.DecodeValue()
	return v, d.Pos(), err
}

// Encode encodes a single top-level value under opts. ObjectEncodingAuto is
// not valid for Encode — an encoder must commit to AMF0 or AMF3; it is
// treated the same as ObjectEncodingAMF0.
func Encode(v Value, opts Options) ([]byte, error) {
	if opts.ObjectEncoding == ObjectEncodingAMF3 {
		e := NewAmf3Encoder()
		e.SetRegistry(opts.registry())
		if err := e.EncodeValue(v); err != nil {
			return nil, err
		}
		return e.Bytes(), nil
	}
	e := NewAmf0Encoder()
	e.SetRegistry(opts.registry())
	if err := e.EncodeValue(v); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}
