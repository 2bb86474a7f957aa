package amf

import "time"

// DefaultMaxAllocation bounds the cumulative number of payload bytes an
// Amf3Decoder will allocate on behalf of length-prefixed items (strings,
// byte arrays, vectors, dense array backing slices) during one decode.
// Without this ceiling a forged U29 length inside a short buffer is still
// bounded by the remaining-buffer check, but a large buffer carrying many
// small-but-numerous forged lengths could still force excessive allocation;
// DefaultMaxAllocation catches that case too.
const DefaultMaxAllocation = 64 << 20 // 64 MiB

// Amf3Decoder decodes a sequence of AMF3 values from a single contiguous
// byte slice. It owns one set of reference tables (string_refs, object_refs,
// trait_refs) for its entire lifetime — create a new Amf3Decoder per
// top-level decode or per Remoting header/message body (Invariant 4).
type Amf3Decoder struct {
	buf       []byte
	pos       int
	refs      *decodeRefs
	registry  *ExternalizableRegistry
	maxAlloc  int64
	allocated int64
}

// NewAmf3Decoder creates a decoder reading from buf with fresh reference
// tables and the default externalizable registry and allocation ceiling.
func NewAmf3Decoder(buf []byte) *Amf3Decoder {
	return &Amf3Decoder{
		buf:      buf,
		refs:     newDecodeRefs(),
		registry: defaultRegistry,
		maxAlloc: DefaultMaxAllocation,
	}
}

// SetRegistry overrides the externalizable registry used for this decode.
func (d *Amf3Decoder) SetRegistry(reg *ExternalizableRegistry) { d.registry = reg }

// SetMaxAllocation overrides the cumulative allocation ceiling for this decode.
func (d *Amf3Decoder) SetMaxAllocation(n int64) { d.maxAlloc = n }

// Pos returns the current read cursor, i.e. the number of bytes of buf
// consumed so far.
func (d *Amf3Decoder) Pos() int { return d.pos }

// Remaining returns the number of unread bytes left in buf.
func (d *Amf3Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Amf3Decoder) checkAlloc(n int) error {
	if n < 0 {
		return ErrOutOfRange
	}
	d.allocated += int64(n)
	if d.allocated > d.maxAlloc || int64(n) > d.maxAlloc {
		return ErrOutOfRange
	}
	return nil
}

func (d *Amf3Decoder) readByte() (byte, error) {
	return readByteAt(d.buf, &d.pos)
}

func (d *Amf3Decoder) readBytes(n int) ([]byte, error) {
	if err := d.checkAlloc(n); err != nil {
		return nil, err
	}
	return readBytesAt(d.buf, &d.pos, n)
}

func (d *Amf3Decoder) readU29() (uint32, error) {
	return readU29(d.buf, &d.pos)
}

func (d *Amf3Decoder) readDouble() (float64, error) {
	b, err := d.readBytes(8)
	if err != nil {
		return 0, err
	}
	return bytesToFloat64(b), nil
}

// readUTF8VR reads one AMF3 "string-like" payload: a U29 header whose low
// bit distinguishes reference (index into string_refs) from inline
// (length followed by UTF-8 bytes, appended to string_refs unless empty).
// This exact shape is reused, without any leading type marker, for trait
// class names, sealed/dynamic property names, array associative keys, and
// Vector.<T> type names — see the design note on the non-marker form.
func (d *Amf3Decoder) readUTF8VR() (string, error) {
	u29, err := d.readU29()
	if err != nil {
		return "", err
	}
	if u29&1 == 0 {
		return d.refs.lookupString(int(u29 >> 1))
	}
	length := int(u29 >> 1)
	if length == 0 {
		return "", nil
	}
	raw, err := d.readBytes(length)
	if err != nil {
		return "", err
	}
	if !isValidUTF8(raw) {
		return "", ErrInvalidUTF8
	}
	s := string(raw)
	d.refs.addString(s)
	return s, nil
}

func (d *Amf3Decoder) decodeInteger() (Integer, error) {
	u29, err := d.readU29()
	if err != nil {
		return 0, err
	}
	return Integer(signExtend29(u29)), nil
}

// bytesLikeHeader reads the common reference-or-inline-length shape shared
// by XmlDoc, Xml, and ByteArray.
func (d *Amf3Decoder) bytesLikeHeader() (idx int, isRef bool, length int, err error) {
	u29, err := d.readU29()
	if err != nil {
		return 0, false, 0, err
	}
	if u29&1 == 0 {
		return int(u29 >> 1), true, 0, nil
	}
	return 0, false, int(u29 >> 1), nil
}

func (d *Amf3Decoder) decodeXmlDoc() (Value, error) {
	idx, isRef, length, err := d.bytesLikeHeader()
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	raw, err := d.readBytes(length)
	if err != nil {
		return nil, err
	}
	v := &XmlDoc{Content: string(raw)}
	d.refs.reserveObject(v)
	return v, nil
}

func (d *Amf3Decoder) decodeXml() (Value, error) {
	idx, isRef, length, err := d.bytesLikeHeader()
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	raw, err := d.readBytes(length)
	if err != nil {
		return nil, err
	}
	v := &Xml{Content: string(raw)}
	d.refs.reserveObject(v)
	return v, nil
}

func (d *Amf3Decoder) decodeByteArray() (Value, error) {
	idx, isRef, length, err := d.bytesLikeHeader()
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	raw, err := d.readBytes(length)
	if err != nil {
		return nil, err
	}
	v := &ByteArray{Bytes: append([]byte(nil), raw...)}
	d.refs.reserveObject(v)
	return v, nil
}

func (d *Amf3Decoder) decodeDate() (Value, error) {
	u29, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if u29&1 == 0 {
		return d.refs.lookupObject(int(u29 >> 1))
	}
	millis, err := d.readDouble()
	if err != nil {
		return nil, err
	}
	v := &Date{Millis: int64(millis)}
	d.refs.reserveObject(v)
	return v, nil
}

// decodeArray decodes an AMF3 Array. The object_refs slot is reserved
// before either the associative or dense portions are read, so a cyclic
// array (arr.Dense[0] == arr) terminates.
func (d *Amf3Decoder) decodeArray() (Value, error) {
	u29, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if u29&1 == 0 {
		return d.refs.lookupObject(int(u29 >> 1))
	}
	length := int(u29 >> 1)
	if err := d.checkAlloc(length); err != nil {
		return nil, err
	}

	arr := &Array{}
	d.refs.reserveObject(arr)

	for {
		key, err := d.readUTF8VR()
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		val, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		arr.Assoc = append(arr.Assoc, Pair{Key: key, Value: val})
	}

	arr.Dense = make([]Value, length)
	for i := 0; i < length; i++ {
		val, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		arr.Dense[i] = val
	}
	return arr, nil
}

// decodeObject decodes an AMF3 Object header (object ref / trait ref /
// inline trait) and body, per §4.3. The object_refs slot is reserved
// immediately after the shell is constructed, before sealed or dynamic
// properties are read, so that a self-referencing object (obj.self = obj)
// terminates.
func (d *Amf3Decoder) decodeObject() (Value, error) {
	h, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if h&1 == 0 {
		return d.refs.lookupObject(int(h >> 1))
	}

	var trait Trait
	if (h>>1)&1 == 0 {
		trait, err = d.refs.lookupTrait(int(h >> 2))
		if err != nil {
			return nil, err
		}
	} else {
		externalizable := (h>>2)&1 != 0
		dynamic := (h>>3)&1 != 0
		sealedCount := int(h >> 4)

		className, err := d.readUTF8VR()
		if err != nil {
			return nil, err
		}
		if externalizable && sealedCount > 0 {
			return nil, ErrMalformedTrait
		}
		if err := d.checkAlloc(sealedCount); err != nil {
			return nil, err
		}
		sealedNames := make([]string, sealedCount)
		for i := range sealedNames {
			sealedNames[i], err = d.readUTF8VR()
			if err != nil {
				return nil, err
			}
		}
		trait = Trait{ClassName: className, Sealed: sealedNames, Dynamic: dynamic, Externalizable: externalizable}
		d.refs.addTrait(trait)
	}

	obj := &Object{
		ClassName:      trait.ClassName,
		Dynamic:        trait.Dynamic,
		Externalizable: trait.Externalizable,
	}
	idx := d.refs.reserveObject(obj)

	if obj.Externalizable {
		reader, ok := d.registry.reader(obj.ClassName)
		if !ok {
			return nil, externalizableNotRegistered(obj.ClassName)
		}
		start := d.pos
		val, err := reader(d)
		if err != nil {
			return nil, err
		}
		payload := append([]byte(nil), d.buf[start:d.pos]...)
		if inner, ok := val.(*Object); ok {
			inner.ExternalizablePayload = payload
			d.refs.setObject(idx, inner)
			return inner, nil
		}
		obj.ExternalizablePayload = payload
		return obj, nil
	}

	if len(trait.Sealed) > 0 {
		obj.Sealed = make([]Pair, len(trait.Sealed))
	}
	for i, name := range trait.Sealed {
		val, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		obj.Sealed[i] = Pair{Key: name, Value: val}
	}

	if obj.Dynamic {
		for {
			key, err := d.readUTF8VR()
			if err != nil {
				return nil, err
			}
			if key == "" {
				break
			}
			val, err := d.DecodeValue()
			if err != nil {
				return nil, err
			}
			obj.DynamicProps = append(obj.DynamicProps, Pair{Key: key, Value: val})
		}
	}

	return obj, nil
}

func (d *Amf3Decoder) vectorHeader(elemSize int) (idx int, isRef bool, length int, fixed bool, err error) {
	u29, err := d.readU29()
	if err != nil {
		return 0, false, 0, false, err
	}
	if u29&1 == 0 {
		return int(u29 >> 1), true, 0, false, nil
	}
	length = int(u29 >> 1)
	if err = d.checkAlloc(length * elemSize); err != nil {
		return 0, false, 0, false, err
	}
	fixedByte, err := d.readByte()
	if err != nil {
		return 0, false, 0, false, err
	}
	return 0, false, length, fixedByte != 0, nil
}

func (d *Amf3Decoder) decodeVectorInt() (Value, error) {
	idx, isRef, length, fixed, err := d.vectorHeader(4)
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	v := &VectorInt{Fixed: fixed, Items: make([]int32, length)}
	d.refs.reserveObject(v)
	for i := range v.Items {
		b, err := d.readBytes(4)
		if err != nil {
			return nil, err
		}
		v.Items[i] = int32(bytesToUint32(b))
	}
	return v, nil
}

func (d *Amf3Decoder) decodeVectorUint() (Value, error) {
	idx, isRef, length, fixed, err := d.vectorHeader(4)
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	v := &VectorUint{Fixed: fixed, Items: make([]uint32, length)}
	d.refs.reserveObject(v)
	for i := range v.Items {
		b, err := d.readBytes(4)
		if err != nil {
			return nil, err
		}
		v.Items[i] = bytesToUint32(b)
	}
	return v, nil
}

func (d *Amf3Decoder) decodeVectorDouble() (Value, error) {
	idx, isRef, length, fixed, err := d.vectorHeader(8)
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	v := &VectorDouble{Fixed: fixed, Items: make([]float64, length)}
	d.refs.reserveObject(v)
	for i := range v.Items {
		b, err := d.readBytes(8)
		if err != nil {
			return nil, err
		}
		v.Items[i] = bytesToFloat64(b)
	}
	return v, nil
}

func (d *Amf3Decoder) decodeVectorObject() (Value, error) {
	idx, isRef, length, fixed, err := d.vectorHeader(1)
	if err != nil {
		return nil, err
	}
	if isRef {
		return d.refs.lookupObject(idx)
	}
	typeName, err := d.readUTF8VR()
	if err != nil {
		return nil, err
	}
	v := &VectorObject{TypeName: typeName, Fixed: fixed, Items: make([]Value, length)}
	d.refs.reserveObject(v)
	for i := range v.Items {
		val, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		v.Items[i] = val
	}
	return v, nil
}

func (d *Amf3Decoder) decodeDictionary() (Value, error) {
	u29, err := d.readU29()
	if err != nil {
		return nil, err
	}
	if u29&1 == 0 {
		return d.refs.lookupObject(int(u29 >> 1))
	}
	length := int(u29 >> 1)
	if err := d.checkAlloc(length); err != nil {
		return nil, err
	}
	weakByte, err := d.readByte()
	if err != nil {
		return nil, err
	}
	v := &Dictionary{WeakKeys: weakByte != 0, Entries: make([]DictEntry, length)}
	d.refs.reserveObject(v)
	for i := range v.Entries {
		key, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		val, err := d.DecodeValue()
		if err != nil {
			return nil, err
		}
		v.Entries[i] = DictEntry{Key: key, Value: val}
	}
	return v, nil
}

// DecodeValue decodes a single AMF3 value, dispatching on its leading
// marker byte.
func (d *Amf3Decoder) DecodeValue() (Value, error) {
	marker, err := d.readByte()
	if err != nil {
		return nil, err
	}
	switch marker {
	case amf3UndefinedMarker:
		return Undefined{}, nil
	case amf3NullMarker:
		return Null{}, nil
	case amf3FalseMarker:
		return Bool(false), nil
	case amf3TrueMarker:
		return Bool(true), nil
	case amf3IntegerMarker:
		return d.decodeInteger()
	case amf3DoubleMarker:
		v, err := d.readDouble()
		if err != nil {
			return nil, err
		}
		return Double(v), nil
	case amf3StringMarker:
		s, err := d.readUTF8VR()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case amf3XMLDocMarker:
		return d.decodeXmlDoc()
	case amf3DateMarker:
		return d.decodeDate()
	case amf3ArrayMarker:
		return d.decodeArray()
	case amf3ObjectMarker:
		return d.decodeObject()
	case amf3XMLMarker:
		return d.decodeXml()
	case amf3ByteArrayMarker:
		return d.decodeByteArray()
	case amf3VectorIntMarker:
		return d.decodeVectorInt()
	case amf3VectorUintMarker:
		return d.decodeVectorUint()
	case amf3VectorDoubleMarker:
		return d.decodeVectorDouble()
	case amf3VectorObjectMarker:
		return d.decodeVectorObject()
	case amf3DictionaryMarker:
		return d.decodeDictionary()
	default:
		return nil, unknownMarker(3, marker)
	}
}

// DecodeAMF3Sequence decodes a sequence of AMF3 values from buf, sharing one
// set of reference tables across the whole sequence (matching the teacher's
// EncodeAMF3Sequence/DecodeAMF3Sequence pairing one level up — see
// top_level.go for the single-value Decode/Encode entry points that give
// each call fresh tables per §3 Invariant 4).
func DecodeAMF3Sequence(buf []byte) ([]Value, int, error) {
	d := NewAmf3Decoder(buf)
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

// dateFromMillis is a small convenience used by externalizable readers that
// want a time.Time instead of the raw Date value.
func dateFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
