package amf

import (
	"bytes"
	"fmt"
)

// Amf3Encoder encodes a sequence of AMF3 values into a growable byte buffer.
// It owns one set of reference tables for its entire lifetime — create a
// new Amf3Encoder per top-level encode or per Remoting header/message body
// (Invariant 4), exactly like Amf3Decoder on the read side.
type Amf3Encoder struct {
	w        bytes.Buffer
	refs     *encodeRefs
	registry *ExternalizableRegistry
}

// NewAmf3Encoder creates an encoder with fresh reference tables and the
// default externalizable registry.
func NewAmf3Encoder() *Amf3Encoder {
	return &Amf3Encoder{
		refs:     newEncodeRefs(),
		registry: defaultRegistry,
	}
}

// SetRegistry overrides the externalizable registry used for this encode.
func (e *Amf3Encoder) SetRegistry(reg *ExternalizableRegistry) { e.registry = reg }

// Bytes returns the encoded wire bytes produced so far.
func (e *Amf3Encoder) Bytes() []byte { return e.w.Bytes() }

func (e *Amf3Encoder) writeU29(v uint32) error {
	b, err := writeU29(nil, v)
	if err != nil {
		return err
	}
	_, err = e.w.Write(b)
	return err
}

// writeUTF8VR writes one AMF3 string-like payload (header + ref-or-inline
// bytes) with no leading type marker — the same non-marker form used for
// trait class names, sealed/dynamic property names, array associative keys,
// and Vector.<T> type names. See the design note on the non-marker form:
// using the marker-bearing String writer here would corrupt the frame.
func (e *Amf3Encoder) writeUTF8VR(s string) error {
	if s == "" {
		return e.writeU29(1)
	}
	if idx, found := e.refs.internString(s); found {
		return e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(uint32(len(s))<<1 | 1); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return err
}

func (e *Amf3Encoder) encodeInteger(i Integer) error {
	if !fitsInt29(int64(i)) {
		return e.encodeDoubleValue(float64(i))
	}
	if err := e.w.WriteByte(amf3IntegerMarker); err != nil {
		return err
	}
	return e.writeU29(encodeInt29(int32(i)))
}

func (e *Amf3Encoder) encodeDoubleValue(v float64) error {
	if err := e.w.WriteByte(amf3DoubleMarker); err != nil {
		return err
	}
	_, err := e.w.Write(float64ToBytes(v))
	return err
}

func (e *Amf3Encoder) encodeString(s String) error {
	if err := e.w.WriteByte(amf3StringMarker); err != nil {
		return err
	}
	return e.writeUTF8VR(string(s))
}

// encodeRefOrInlineBytes writes marker, then a ref header if v was already
// emitted, else an inline length header followed by payload — the shape
// shared by XmlDoc, Xml, and ByteArray. v must be interned before payload is
// written so a later identity-equal occurrence becomes a reference.
func (e *Amf3Encoder) encodeRefOrInlineBytes(marker byte, v Value, payload []byte) error {
	if err := e.w.WriteByte(marker); err != nil {
		return err
	}
	if idx, found := e.refs.internObject(v); found {
		return e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(uint32(len(payload))<<1 | 1); err != nil {
		return err
	}
	_, err := e.w.Write(payload)
	return err
}

func (e *Amf3Encoder) encodeXmlDoc(v *XmlDoc) error {
	return e.encodeRefOrInlineBytes(amf3XMLDocMarker, v, []byte(v.Content))
}

func (e *Amf3Encoder) encodeXml(v *Xml) error {
	return e.encodeRefOrInlineBytes(amf3XMLMarker, v, []byte(v.Content))
}

func (e *Amf3Encoder) encodeByteArray(v *ByteArray) error {
	return e.encodeRefOrInlineBytes(amf3ByteArrayMarker, v, v.Bytes)
}

func (e *Amf3Encoder) encodeDate(v *Date) error {
	if err := e.w.WriteByte(amf3DateMarker); err != nil {
		return err
	}
	if idx, found := e.refs.internObject(v); found {
		return e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(1); err != nil {
		return err
	}
	_, err := e.w.Write(float64ToBytes(float64(v.Millis)))
	return err
}

func (e *Amf3Encoder) encodeArray(v *Array) error {
	if err := e.w.WriteByte(amf3ArrayMarker); err != nil {
		return err
	}
	if idx, found := e.refs.internObject(v); found {
		return e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(uint32(len(v.Dense))<<1 | 1); err != nil {
		return err
	}
	for _, p := range v.Assoc {
		if err := e.writeUTF8VR(p.Key); err != nil {
			return err
		}
		if err := e.EncodeValue(p.Value); err != nil {
			return err
		}
	}
	if err := e.writeUTF8VR(""); err != nil {
		return err
	}
	for _, item := range v.Dense {
		if err := e.EncodeValue(item); err != nil {
			return err
		}
	}
	return nil
}

// encodeObject writes an AMF3 Object: object-reference short-circuit, then
// trait-reference-or-inline-trait header, then the externalizable body or
// the sealed/dynamic property lists. v is interned before any property is
// encoded, so a self-referencing object (obj.Sealed[0].Value == obj)
// encodes as a finite object reference rather than recursing forever.
func (e *Amf3Encoder) encodeObject(v *Object) error {
	if err := e.w.WriteByte(amf3ObjectMarker); err != nil {
		return err
	}
	if idx, found := e.refs.internObject(v); found {
		return e.writeU29(uint32(idx) << 1)
	}

	trait := traitFromObject(v)
	if tidx, found := e.refs.internTrait(trait); found {
		if err := e.writeU29(uint32(tidx)<<2 | 1); err != nil {
			return err
		}
	} else {
		h := uint32(len(trait.Sealed)) << 4
		if trait.Dynamic {
			h |= 1 << 3
		}
		if trait.Externalizable {
			h |= 1 << 2
		}
		h |= 0b11
		if err := e.writeU29(h); err != nil {
			return err
		}
		if err := e.writeUTF8VR(trait.ClassName); err != nil {
			return err
		}
		for _, name := range trait.Sealed {
			if err := e.writeUTF8VR(name); err != nil {
				return err
			}
		}
	}

	if v.Externalizable {
		if len(v.ExternalizablePayload) > 0 {
			_, err := e.w.Write(v.ExternalizablePayload)
			return err
		}
		writer, ok := e.registry.writer(v.ClassName)
		if !ok {
			return externalizableNotRegistered(v.ClassName)
		}
		return writer(e, v)
	}

	for _, p := range v.Sealed {
		if err := e.EncodeValue(p.Value); err != nil {
			return err
		}
	}
	if v.Dynamic {
		for _, p := range v.DynamicProps {
			if err := e.writeUTF8VR(p.Key); err != nil {
				return err
			}
			if err := e.EncodeValue(p.Value); err != nil {
				return err
			}
		}
		if err := e.writeUTF8VR(""); err != nil {
			return err
		}
	}
	return nil
}

func (e *Amf3Encoder) encodeVectorHeader(marker byte, v Value, length int, fixed bool) (alreadyRef bool, err error) {
	if err := e.w.WriteByte(marker); err != nil {
		return false, err
	}
	if idx, found := e.refs.internObject(v); found {
		return true, e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(uint32(length)<<1 | 1); err != nil {
		return false, err
	}
	fixedByte := byte(0)
	if fixed {
		fixedByte = 1
	}
	return false, e.w.WriteByte(fixedByte)
}

func (e *Amf3Encoder) encodeVectorInt(v *VectorInt) error {
	alreadyRef, err := e.encodeVectorHeader(amf3VectorIntMarker, v, len(v.Items), v.Fixed)
	if err != nil || alreadyRef {
		return err
	}
	for _, item := range v.Items {
		b := make([]byte, 4)
		putUint32(b, uint32(item))
		if _, err := e.w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Amf3Encoder) encodeVectorUint(v *VectorUint) error {
	alreadyRef, err := e.encodeVectorHeader(amf3VectorUintMarker, v, len(v.Items), v.Fixed)
	if err != nil || alreadyRef {
		return err
	}
	for _, item := range v.Items {
		b := make([]byte, 4)
		putUint32(b, item)
		if _, err := e.w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *Amf3Encoder) encodeVectorDouble(v *VectorDouble) error {
	alreadyRef, err := e.encodeVectorHeader(amf3VectorDoubleMarker, v, len(v.Items), v.Fixed)
	if err != nil || alreadyRef {
		return err
	}
	for _, item := range v.Items {
		if _, err := e.w.Write(float64ToBytes(item)); err != nil {
			return err
		}
	}
	return nil
}

func (e *Amf3Encoder) encodeVectorObject(v *VectorObject) error {
	if err := e.w.WriteByte(amf3VectorObjectMarker); err != nil {
		return err
	}
	if idx, found := e.refs.internObject(v); found {
		return e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(uint32(len(v.Items))<<1 | 1); err != nil {
		return err
	}
	fixedByte := byte(0)
	if v.Fixed {
		fixedByte = 1
	}
	if err := e.w.WriteByte(fixedByte); err != nil {
		return err
	}
	if err := e.writeUTF8VR(v.TypeName); err != nil {
		return err
	}
	for _, item := range v.Items {
		if err := e.EncodeValue(item); err != nil {
			return err
		}
	}
	return nil
}

func (e *Amf3Encoder) encodeDictionary(v *Dictionary) error {
	if err := e.w.WriteByte(amf3DictionaryMarker); err != nil {
		return err
	}
	if idx, found := e.refs.internObject(v); found {
		return e.writeU29(uint32(idx) << 1)
	}
	if err := e.writeU29(uint32(len(v.Entries))<<1 | 1); err != nil {
		return err
	}
	weakByte := byte(0)
	if v.WeakKeys {
		weakByte = 1
	}
	if err := e.w.WriteByte(weakByte); err != nil {
		return err
	}
	for _, entry := range v.Entries {
		if err := e.EncodeValue(entry.Key); err != nil {
			return err
		}
		if err := e.EncodeValue(entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// EncodeValue encodes a single AMF3 value, dispatching on its concrete type.
func (e *Amf3Encoder) EncodeValue(v Value) error {
	switch val := v.(type) {
	case nil:
		return e.w.WriteByte(amf3NullMarker)
	case Undefined:
		return e.w.WriteByte(amf3UndefinedMarker)
	case Null:
		return e.w.WriteByte(amf3NullMarker)
	case Bool:
		if val {
			return e.w.WriteByte(amf3TrueMarker)
		}
		return e.w.WriteByte(amf3FalseMarker)
	case Integer:
		return e.encodeInteger(val)
	case Double:
		return e.encodeDoubleValue(float64(val))
	case String:
		return e.encodeString(val)
	case *Date:
		return e.encodeDate(val)
	case *ByteArray:
		return e.encodeByteArray(val)
	case *XmlDoc:
		return e.encodeXmlDoc(val)
	case *Xml:
		return e.encodeXml(val)
	case *Array:
		return e.encodeArray(val)
	case *Object:
		return e.encodeObject(val)
	case *VectorInt:
		return e.encodeVectorInt(val)
	case *VectorUint:
		return e.encodeVectorUint(val)
	case *VectorDouble:
		return e.encodeVectorDouble(val)
	case *VectorObject:
		return e.encodeVectorObject(val)
	case *Dictionary:
		return e.encodeDictionary(val)
	default:
		return fmt.Errorf("amf3: unsupported value type %T", v)
	}
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

// EncodeAMF3Sequence encodes values into a single byte slice sharing one set
// of reference tables across the whole sequence, mirroring
// DecodeAMF3Sequence.
func EncodeAMF3Sequence(values ...Value) ([]byte, error) {
	e := NewAmf3Encoder()
	for _, v := range values {
		if err := e.EncodeValue(v); err != nil {
			return nil, err
		}
	}
	return e.Bytes(), nil
}
