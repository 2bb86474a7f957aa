package amf

// Amf0Decoder decodes a sequence of AMF0 values from a single contiguous
// byte slice. Its object reference table (marker 0x07) is a distinct
// namespace from AMF3's string/object/trait tables; crossing the AVMPlus
// bridge (marker 0x11) hands the remainder of that one value to a fresh
// Amf3Decoder with its own tables, sharing only the underlying buffer and
// read cursor.
type Amf0Decoder struct {
	buf       []byte
	pos       int
	refs      *amf0DecodeRefs
	registry  *ExternalizableRegistry
	maxAlloc  int64
	allocated int64
}

// NewAmf0Decoder creates a decoder reading from buf with a fresh reference
// table and the default externalizable registry and allocation ceiling.
func NewAmf0Decoder(buf []byte) *Amf0Decoder {
	return &Amf0Decoder{
		buf:      buf,
		refs:     newAmf0DecodeRefs(),
		registry: defaultRegistry,
		maxAlloc: DefaultMaxAllocation,
	}
}

// SetRegistry overrides the externalizable registry used for this decode,
// including any AMF3 value reached through the AVMPlus bridge.
func (d *Amf0Decoder) SetRegistry(reg *ExternalizableRegistry) { d.registry = reg }

// SetMaxAllocation overrides the cumulative allocation ceiling for this decode.
func (d *Amf0Decoder) SetMaxAllocation(n int64) { d.maxAlloc = n }

// Pos returns the current read cursor.
func (d *Amf0Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes left in buf.
func (d *Amf0Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Amf0Decoder) checkAlloc(n int) error {
	if n < 0 {
		return ErrOutOfRange
	}
	d.allocated += int64(n)
	if d.allocated > d.maxAlloc || int64(n) > d.maxAlloc {
		return ErrOutOfRange
	}
	return nil
}

func (d *Amf0Decoder) readByte() (byte, error) {
	return readByteAt(d.buf, &d.pos)
}

func (d *Amf0Decoder) readBytes(n int) ([]byte, error) {
	if err := d.checkAlloc(n); err != nil {
		return nil, err
	}
	return readBytesAt(d.buf, &d.pos, n)
}

// readUTF8 reads an AMF0 short string: a 16-bit big-endian length followed
// by that many UTF-8 bytes. Used for object/array property keys, typed
// object class names, and the String marker's payload.
func (d *Amf0Decoder) readUTF8() (string, error) {
	lb, err := d.readBytes(2)
	if err != nil {
		return "", err
	}
	n := int(bytesToUint16(lb))
	if n == 0 {
		return "", nil
	}
	raw, err := d.readBytes(n)
	if err != nil {
		return "", err
	}
	if !isValidUTF8(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

// readLongUTF8 reads the 32-bit-length variant used by LongString and
// XmlDocument.
func (d *Amf0Decoder) readLongUTF8() (string, error) {
	lb, err := d.readBytes(4)
	if err != nil {
		return "", err
	}
	n := int(bytesToUint32(lb))
	if err := d.checkAlloc(n); err != nil {
		return "", err
	}
	raw, err := d.readBytes(n)
	if err != nil {
		return "", err
	}
	if !isValidUTF8(raw) {
		return "", ErrInvalidUTF8
	}
	return string(raw), nil
}

// readPropertyList reads the key/value pairs shared by Object, ECMA Array,
// and TypedObject bodies: (u16-length key, value) pairs terminated by an
// empty key immediately followed by the object-end marker.
func (d *Amf0Decoder) readPropertyList() ([]Pair, error) {
	var pairs []Pair
	for {
		key, err := d.readUTF8()
		if err != nil {
			return nil, err
		}
		if key == "" {
			marker, err := d.readByte()
			if err != nil {
				return nil, err
			}
			if marker != objectEndMarker {
				return nil, unknownMarker(0, marker)
			}
			break
		}
		val, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, Pair{Key: key, Value: val})
	}
	return pairs, nil
}

// decodeObject decodes a plain AMF0 Object (marker 0x03). AMF0 has no
// sealed/dynamic distinction, so every property lands in DynamicProps with
// Dynamic set. The reference slot is reserved before the property list is
// read so a self-referencing object terminates.
func (d *Amf0Decoder) decodeObject() (Value, error) {
	obj := &Object{Dynamic: true}
	d.refs.reserve(obj)
	pairs, err := d.readPropertyList()
	if err != nil {
		return nil, err
	}
	obj.DynamicProps = pairs
	return obj, nil
}

func (d *Amf0Decoder) decodeTypedObject() (Value, error) {
	className, err := d.readUTF8()
	if err != nil {
		return nil, err
	}
	obj := &Object{ClassName: className, Dynamic: true}
	d.refs.reserve(obj)
	pairs, err := d.readPropertyList()
	if err != nil {
		return nil, err
	}
	obj.DynamicProps = pairs
	return obj, nil
}

// decodeECMAArray decodes the associative array marker (0x08). The leading
// u32 count is a historical preallocation hint, not an authoritative length
// — the body is read the same way as Object, terminated by the empty-key +
// object-end sequence, and the result is represented purely as Array.Assoc
// (see the design note on AMF0 array round-trip in DESIGN.md).
func (d *Amf0Decoder) decodeECMAArray() (Value, error) {
	if _, err := d.readBytes(4); err != nil {
		return nil, err
	}
	arr := &Array{}
	d.refs.reserve(arr)
	pairs, err := d.readPropertyList()
	if err != nil {
		return nil, err
	}
	arr.Assoc = pairs
	return arr, nil
}

func (d *Amf0Decoder) decodeStrictArray() (Value, error) {
	cb, err := d.readBytes(4)
	if err != nil {
		return nil, err
	}
	count := int(bytesToUint32(cb))
	if err := d.checkAlloc(count); err != nil {
		return nil, err
	}
	arr := &Array{Dense: make([]Value, count)}
	d.refs.reserve(arr)
	for i := range arr.Dense {
		v, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		arr.Dense[i] = v
	}
	return arr, nil
}

// decodeDate reads the 8-byte millisecond timestamp and the 2-byte reserved
// timezone field (always ignored on decode, always written zero on encode).
// Classic AMF0 Date is not reference-tabled.
func (d *Amf0Decoder) decodeDate() (Value, error) {
	db, err := d.readBytes(8)
	if err != nil {
		return nil, err
	}
	if _, err := d.readBytes(2); err != nil {
		return nil, err
	}
	return &Date{Millis: int64(bytesToFloat64(db))}, nil
}

func (d *Amf0Decoder) decodeXmlDocument() (Value, error) {
	s, err := d.readLongUTF8()
	if err != nil {
		return nil, err
	}
	return &XmlDoc{Content: s}, nil
}

func (d *Amf0Decoder) decodeReference() (Value, error) {
	b, err := d.readBytes(2)
	if err != nil {
		return nil, err
	}
	return d.refs.lookup(int(bytesToUint16(b)))
}

// decodeAVMPlus hands the remainder of this one value to a fresh
// Amf3Decoder sharing the same buffer and position, per §5: the AVMPlus
// marker means "everything from here to the end of this single value is
// AMF3", with its own reference tables independent of this AMF0 decoder's.
func (d *Amf0Decoder) decodeAVMPlus() (Value, error) {
	sub := NewAmf3Decoder(d.buf)
	sub.pos = d.pos
	sub.registry = d.registry
	sub.maxAlloc = d.maxAlloc
	v, err := sub.DecodeValue()
	d.pos = sub.pos
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeValue decodes a single AMF0 value, dispatching on its leading
// marker byte. MovieClip, the bare object-end marker, and RecordSet are
// reserved/unsupported and decode as UnknownMarkerError.
func (d *Amf0Decoder) DecodeValue() (Value, error) {
	marker, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case numberMarker:
		b, err := d.readBytes(8)
		if err != nil {
			return nil, err
		}
		return Double(bytesToFloat64(b)), nil
	case booleanMarker:
		b, err := d.readByte()
		if err != nil {
			return nil, err
		}
		return Bool(b != 0), nil
	case stringMarker:
		s, err := d.readUTF8()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case objectMarker:
		return d.decodeObject()
	case nullMarker:
		return Null{}, nil
	case undefinedMarker:
		return Undefined{}, nil
	case referenceMarker:
		return d.decodeReference()
	case ecmaArrayMarker:
		return d.decodeECMAArray()
	case strictArrayMarker:
		return d.decodeStrictArray()
	case dateMarker:
		return d.decodeDate()
	case longStringMarker:
		s, err := d.readLongUTF8()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case unsupportedMarker:
		return Undefined{}, nil
	case xmlDocumentMarker:
		return d.decodeXmlDocument()
	case typedObjectMarker:
		return d.decodeTypedObject()
	case avmPlusMarker:
		return d.decodeAVMPlus()
	case movieClipMarker, objectEndMarker, recordsetMarker:
		return nil, unknownMarker(0, marker)
	default:
		return nil, unknownMarker(0, marker)
	}
}

// DecodeAMF0Sequence decodes a sequence of AMF0 values from buf, sharing one
// object reference table across the whole sequence. Remoting message/header
// bodies each get their own call (and so their own table), per Invariant 4.
func DecodeAMF0Sequence(buf []byte) ([]Value, int, error) {
	d := NewAmf0Decoder(buf)
	var values []Value
	for d.Remaining() > 0 {
		val, err := d.DecodeValue()
		if err != nil {
			return values, d.Pos(), err
		}
		values = append(values, val)
	}
	return values, d.Pos(), nil
}
