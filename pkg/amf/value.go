// Package amf implements the Action Message Format codec: AMF0 (legacy),
// AMF3 (Flash Player 9+), and the AMF Remoting envelope that carries them.
//
// The value tree is a tagged variant (a closed sum) rather than the
// attribute-sniffed plain maps an ActionScript-adjacent host language would
// use — see Value. Reference-eligible complex values (Array, Object, Date,
// ByteArray, Xml, XmlDoc, the Vector family, Dictionary) are always held as
// pointers in the tree, so Go's pointer-identity comparison is exactly the
// identity the AMF3 reference tables require (invariant 3 of the reference
// table contract: an identity-equal value appearing twice must be encoded
// as a reference, never re-inlined).
package amf

// Value is implemented by every node of the decoded value tree.
type Value interface {
	amfValue()
}

// Undefined is the AMF "undefined" value, distinct from Null.
type Undefined struct{}

// Null is the AMF "null" value.
type Null struct{}

// Bool is an AMF boolean.
type Bool bool

// Integer is an AMF3 29-bit signed integer, range [-2^28, 2^28-1].
// AMF0 has no integer marker; AMF0 numbers always decode as Double.
type Integer int32

// Double is an IEEE-754 binary64 number.
type Double float64

// String is UTF-8 text. The empty string is legal and is never
// reference-tabled (see decodeRefs.addString and encodeRefs.internString in
// amf3_refs.go).
type String string

// Date is epoch milliseconds UTC. No timezone component is preserved;
// AMF0's reserved timezone field is always written as zero.
type Date struct {
	Millis int64
}

// ByteArray wraps an opaque byte buffer, explicitly tagged so the encoder
// never has to guess that a []byte should become an AMF3 ByteArray rather
// than some other representation.
type ByteArray struct {
	Bytes []byte
}

// XmlDoc is the legacy AMF3 "XMLDocument" marker: same payload shape as Xml,
// distinguished only by wire marker.
type XmlDoc struct {
	Content string
}

// Xml is the AMF3 "XML" (e4x) marker.
type Xml struct {
	Content string
}

// Pair is an ordered (name, value) entry, used for AMF3 object sealed and
// dynamic properties and for AMF0/AMF3 array associative entries. Order
// matters: it is the insertion order the spec requires be preserved.
type Pair struct {
	Key   string
	Value Value
}

// Array is the AMF dense+associative array. Dense holds the 0..N-1 indexed
// elements; Assoc holds any named (non-index) properties, insertion-ordered.
type Array struct {
	Dense []Value
	Assoc []Pair
}

// Object is an AMF3 "object" (ActionScript class instance or anonymous
// dynamic object) or, when decoded from AMF0, an AMF0 Object or typed
// object (an AMF0 ECMA array decodes as Array). ClassName is empty for anonymous objects. Sealed holds the
// trait-declared properties in declared order; Dynamic, when true, means the
// class accepts additional named properties beyond the sealed set, carried
// in DynamicProps in insertion order.
//
// Externalizable objects opt out of the sealed/dynamic property protocol
// entirely: their body is opaque to the codec and is handed to a reader
// registered in the ExternalizableRegistry (see externalizable.go). On
// encode, ExternalizablePayload lets a caller supply pre-serialized bytes
// directly when no writer is registered for the class.
type Object struct {
	ClassName             string
	Sealed                []Pair
	Dynamic               bool
	DynamicProps          []Pair
	Externalizable        bool
	ExternalizablePayload []byte
}

// Trait is the (class_name, sealed_names, dynamic, externalizable)
// descriptor AMF3 objects of the same ActionScript class share. Two traits
// are equal iff all four fields are equal; the trait reference table,
// however, uses positional identity (the index at which a trait was first
// emitted), never structural equality, once in the table.
type Trait struct {
	ClassName      string
	Sealed         []string
	Dynamic        bool
	Externalizable bool
}

// Equal reports structural equality of two trait descriptors.
func (t Trait) Equal(o Trait) bool {
	if t.ClassName != o.ClassName || t.Dynamic != o.Dynamic || t.Externalizable != o.Externalizable {
		return false
	}
	if len(t.Sealed) != len(o.Sealed) {
		return false
	}
	for i := range t.Sealed {
		if t.Sealed[i] != o.Sealed[i] {
			return false
		}
	}
	return true
}

// traitFromObject derives o's trait. An externalizable object's trait
// carries no sealed names: its body is opaque to the codec.
func traitFromObject(o *Object) Trait {
	var sealed []string
	if !o.Externalizable {
		sealed = make([]string, len(o.Sealed))
		for i, p := range o.Sealed {
			sealed[i] = p.Key
		}
	}
	return Trait{
		ClassName:      o.ClassName,
		Sealed:         sealed,
		Dynamic:        o.Dynamic,
		Externalizable: o.Externalizable,
	}
}

// VectorInt is an AMF3 Vector.<int>.
type VectorInt struct {
	Fixed bool
	Items []int32
}

// VectorUint is an AMF3 Vector.<uint>.
type VectorUint struct {
	Fixed bool
	Items []uint32
}

// VectorDouble is an AMF3 Vector.<Number>.
type VectorDouble struct {
	Fixed bool
	Items []float64
}

// VectorObject is an AMF3 Vector.<T> for a non-primitive element type.
// TypeName may be empty (Vector.<*>).
type VectorObject struct {
	TypeName string
	Fixed    bool
	Items    []Value
}

// DictEntry is one key/value pair of a Dictionary. Unlike Array/Object
// properties, Dictionary keys are themselves full AMF values, not just
// strings.
type DictEntry struct {
	Key   Value
	Value Value
}

// Dictionary is the AMF3 Dictionary type (flash.utils.Dictionary).
// WeakKeys mirrors the wire's weak-keys flag; this codec does not itself
// implement weak references, it only preserves the flag through a round
// trip.
type Dictionary struct {
	WeakKeys bool
	Entries  []DictEntry
}

// AVM3 marks a value that must be carried through an AMF0 context via the
// AVMPlus bridge (marker 0x11): on encode, Amf0Encoder writes the bridge
// marker and switches to a fresh Amf3Encoder for Value; on decode, Amf0Decoder
// never produces an AVM3 wrapper itself — it returns whatever Amf3Decoder
// decoded directly, since from that point on the value belongs to the AMF3
// domain. Callers building an AMF0 tree wrap a value in AVM3 to request AMF3
// encoding for just that value.
type AVM3 struct {
	Value Value
}

func (*AVM3) amfValue() {}

func (Undefined) amfValue()     {}
func (Null) amfValue()          {}
func (Bool) amfValue()          {}
func (Integer) amfValue()       {}
func (Double) amfValue()        {}
func (String) amfValue()        {}
func (*Date) amfValue()         {}
func (*ByteArray) amfValue()    {}
func (*XmlDoc) amfValue()       {}
func (*Xml) amfValue()          {}
func (*Array) amfValue()        {}
func (*Object) amfValue()       {}
func (*VectorInt) amfValue()    {}
func (*VectorUint) amfValue()   {}
func (*VectorDouble) amfValue() {}
func (*VectorObject) amfValue() {}
func (*Dictionary) amfValue()   {}
