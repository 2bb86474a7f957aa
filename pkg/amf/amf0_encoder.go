package amf

import (
	"bytes"
	"fmt"
	"strconv"
)

// Amf0Encoder encodes a sequence of AMF0 values into a growable byte buffer.
// Its object reference table is a distinct namespace from AMF3's — see
// Amf0Decoder.
type Amf0Encoder struct {
	w        bytes.Buffer
	refs     *amf0EncodeRefs
	registry *ExternalizableRegistry
}

// NewAmf0Encoder creates an encoder with a fresh reference table and the
// default externalizable registry.
func NewAmf0Encoder() *Amf0Encoder {
	return &Amf0Encoder{
		refs:     newAmf0EncodeRefs(),
		registry: defaultRegistry,
	}
}

// SetRegistry overrides the externalizable registry used for any value
// reached through the AVMPlus bridge.
func (e *Amf0Encoder) SetRegistry(reg *ExternalizableRegistry) { e.registry = reg }

// Bytes returns the encoded wire bytes produced so far.
func (e *Amf0Encoder) Bytes() []byte { return e.w.Bytes() }

func (e *Amf0Encoder) writeUTF8(s string) error {
	if len(s) > 0xFFFF {
		return ErrOutOfRange
	}
	if _, err := e.w.Write(uint16ToBytes(uint16(len(s)))); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return err
}

func (e *Amf0Encoder) writeLongUTF8(s string) error {
	if _, err := e.w.Write(uint32ToBytes(uint32(len(s)))); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return err
}

// writePropertyList writes the (key, value)* + empty-key + object-end
// sequence shared by Object, ECMA Array, and TypedObject bodies.
func (e *Amf0Encoder) writePropertyList(pairs []Pair) error {
	for _, p := range pairs {
		if err := e.writeUTF8(p.Key); err != nil {
			return err
		}
		if err := e.EncodeValue(p.Value); err != nil {
			return err
		}
	}
	if err := e.writeUTF8(""); err != nil {
		return err
	}
	return e.w.WriteByte(objectEndMarker)
}

func (e *Amf0Encoder) writeRef(idx int) error {
	if err := e.w.WriteByte(referenceMarker); err != nil {
		return err
	}
	_, err := e.w.Write(uint16ToBytes(uint16(idx)))
	return err
}

// encodeObject writes a plain Object or, when ClassName is set, a
// TypedObject. AMF0 has no sealed/dynamic split, so Sealed and DynamicProps
// are concatenated in that order into one property list.
func (e *Amf0Encoder) encodeObject(v *Object) error {
	if idx, found := e.refs.intern(v); found {
		return e.writeRef(idx)
	}
	if v.ClassName != "" {
		if err := e.w.WriteByte(typedObjectMarker); err != nil {
			return err
		}
		if err := e.writeUTF8(v.ClassName); err != nil {
			return err
		}
	} else if err := e.w.WriteByte(objectMarker); err != nil {
		return err
	}
	pairs := make([]Pair, 0, len(v.Sealed)+len(v.DynamicProps))
	pairs = append(pairs, v.Sealed...)
	pairs = append(pairs, v.DynamicProps...)
	return e.writePropertyList(pairs)
}

// encodeArray writes StrictArray when the value has no associative entries,
// else ECMAArray with the dense items re-expressed as decimal-string-keyed
// pairs ahead of Assoc. A value round-tripped this way comes back as pure
// Array.Assoc rather than Array.Dense — see the design note on AMF0 array
// fidelity in DESIGN.md; AMF0's role here is carrying a Remoting envelope,
// not preserving Go-side Dense/Assoc partitioning.
func (e *Amf0Encoder) encodeArray(v *Array) error {
	if idx, found := e.refs.intern(v); found {
		return e.writeRef(idx)
	}
	if len(v.Assoc) == 0 {
		if err := e.w.WriteByte(strictArrayMarker); err != nil {
			return err
		}
		if _, err := e.w.Write(uint32ToBytes(uint32(len(v.Dense)))); err != nil {
			return err
		}
		for _, item := range v.Dense {
			if err := e.EncodeValue(item); err != nil {
				return err
			}
		}
		return nil
	}
	if err := e.w.WriteByte(ecmaArrayMarker); err != nil {
		return err
	}
	count := len(v.Dense) + len(v.Assoc)
	if _, err := e.w.Write(uint32ToBytes(uint32(count))); err != nil {
		return err
	}
	pairs := make([]Pair, 0, count)
	for i, item := range v.Dense {
		pairs = append(pairs, Pair{Key: strconv.Itoa(i), Value: item})
	}
	pairs = append(pairs, v.Assoc...)
	return e.writePropertyList(pairs)
}

func (e *Amf0Encoder) encodeDate(v *Date) error {
	if err := e.w.WriteByte(dateMarker); err != nil {
		return err
	}
	if _, err := e.w.Write(float64ToBytes(float64(v.Millis))); err != nil {
		return err
	}
	_, err := e.w.Write([]byte{0, 0})
	return err
}

// encodeAVMPlus writes the bridge marker and delegates the wrapped value to
// a fresh Amf3Encoder, per §5.
func (e *Amf0Encoder) encodeAVMPlus(v *AVM3) error {
	if err := e.w.WriteByte(avmPlusMarker); err != nil {
		return err
	}
	sub := NewAmf3Encoder()
	sub.SetRegistry(e.registry)
	if err := sub.EncodeValue(v.Value); err != nil {
		return err
	}
	_, err := e.w.Write(sub.Bytes())
	return err
}

// EncodeValue encodes a single AMF0 value, dispatching on its concrete type.
// ByteArray, Xml, the Vector family, and Dictionary have no AMF0 marker;
// wrap them in AVM3 to carry them through an AMF0-encoded sequence.
func (e *Amf0Encoder) EncodeValue(v Value) error {
	switch val := v.(type) {
	case nil:
		return e.w.WriteByte(nullMarker)
	case Undefined:
		return e.w.WriteByte(undefinedMarker)
	case Null:
		return e.w.WriteByte(nullMarker)
	case Bool:
		if err := e.w.WriteByte(booleanMarker); err != nil {
			return err
		}
		b := byte(0)
		if val {
			b = 1
		}
		return e.w.WriteByte(b)
	case Integer:
		if err := e.w.WriteByte(numberMarker); err != nil {
			return err
		}
		_, err := e.w.Write(float64ToBytes(float64(val)))
		return err
	case Double:
		if err := e.w.WriteByte(numberMarker); err != nil {
			return err
		}
		_, err := e.w.Write(float64ToBytes(float64(val)))
		return err
	case String:
		if len(val) > 0xFFFF {
			if err := e.w.WriteByte(longStringMarker); err != nil {
				return err
			}
			return e.writeLongUTF8(string(val))
		}
		if err := e.w.WriteByte(stringMarker); err != nil {
			return err
		}
		return e.writeUTF8(string(val))
	case *Date:
		return e.encodeDate(val)
	case *XmlDoc:
		if err := e.w.WriteByte(xmlDocumentMarker); err != nil {
			return err
		}
		return e.writeLongUTF8(val.Content)
	case *Array:
		return e.encodeArray(val)
	case *Object:
		return e.encodeObject(val)
	case *AVM3:
		return e.encodeAVMPlus(val)
	default:
		return fmt.Errorf("amf0: unsupported value type %T", v)
	}
}

// EncodeAMF0Sequence encodes values into a single byte slice sharing one
// object reference table across the whole sequence, mirroring
// EncodeAMF3Sequence.
func EncodeAMF0Sequence(values ...Value) ([]byte, error) {
	e := NewAmf0Encoder()
	for _, v := range values {
		if err := e.EncodeValue(v); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}
