package amf

import (
	"errors"
	"fmt"
	"testing"
)

func TestDecodeAMF3Sequence_Success(t *testing.T) {
	values := []Value{Integer(42), Bool(true), String("hello")}
	encoded, err := EncodeAMF3Sequence(values...)
	if err != nil {
		t.Fatal(err)
	}

	decoded, n, err := DecodeAMF3Sequence(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(encoded) {
		t.Errorf("expected to consume %d bytes, consumed %d", len(encoded), n)
	}
	if len(decoded) != len(values) {
		t.Errorf("expected %d values, got %d", len(values), len(decoded))
	}
}

func TestDecodeAMF3Sequence_Empty(t *testing.T) {
	decoded, n, err := DecodeAMF3Sequence(nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(decoded) != 0 {
		t.Errorf("expected 0 values consuming 0 bytes, got %d values / %d bytes", len(decoded), n)
	}
}

func TestDecodeAMF3Sequence_UnknownMarker(t *testing.T) {
	_, _, err := DecodeAMF3Sequence([]byte{0xFF})
	if err == nil {
		t.Fatal("expected error for invalid marker")
	}
	var umErr *UnknownMarkerError
	if !errors.As(err, &umErr) {
		t.Fatalf("expected UnknownMarkerError, got %T: %v", err, err)
	}
	if umErr.Marker != 0xFF || umErr.Version != 3 {
		t.Errorf("unexpected error fields: %+v", umErr)
	}
}

func TestDecodeValue_NullUndefined(t *testing.T) {
	d := NewAmf3Decoder([]byte{amf3NullMarker})
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(Null); !ok {
		t.Errorf("expected Null, got %T", v)
	}

	d = NewAmf3Decoder([]byte{amf3UndefinedMarker})
	v, err = d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := v.(Undefined); !ok {
		t.Errorf("expected Undefined, got %T", v)
	}
}

func TestDecodeValue_Boolean(t *testing.T) {
	d := NewAmf3Decoder([]byte{amf3TrueMarker})
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if v != Bool(true) {
		t.Errorf("expected true, got %v", v)
	}

	d = NewAmf3Decoder([]byte{amf3FalseMarker})
	v, err = d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if v != Bool(false) {
		t.Errorf("expected false, got %v", v)
	}
}

func TestDecodeValue_Integer(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected int32
	}{
		{[]byte{amf3IntegerMarker, 0x00}, 0},
		{[]byte{amf3IntegerMarker, 0x7F}, 127},
		{[]byte{amf3IntegerMarker, 0x81, 0x00}, 128},
		{[]byte{amf3IntegerMarker, 0xFF, 0x7F}, 16383},
		{[]byte{amf3IntegerMarker, 0xFF, 0xFF, 0xFF, 0xFF}, -1},
		{[]byte{amf3IntegerMarker, 0xC0, 0x80, 0x80, 0x00}, int29Min},
		{[]byte{amf3IntegerMarker, 0xBF, 0xFF, 0xFF, 0xFF}, int29Max},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			d := NewAmf3Decoder(tc.data)
			v, err := d.DecodeValue()
			if err != nil {
				t.Fatal(err)
			}
			if v != Integer(tc.expected) {
				t.Errorf("expected %d, got %v", tc.expected, v)
			}
		})
	}
}

func TestDecodeValue_Double(t *testing.T) {
	encoded, err := EncodeAMF3Sequence(Double(3.14))
	if err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(encoded)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if v != Double(3.14) {
		t.Errorf("expected 3.14, got %v", v)
	}
}

func TestDecodeValue_String(t *testing.T) {
	encoded, err := EncodeAMF3Sequence(String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(encoded)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if v != String("hello") {
		t.Errorf("expected hello, got %v", v)
	}
}

func TestDecodeValue_String_Empty(t *testing.T) {
	d := NewAmf3Decoder([]byte{amf3StringMarker, 0x01})
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	if v != String("") {
		t.Errorf("expected empty string, got %v", v)
	}
}

func TestDecodeValue_String_EmptyNeverTabled(t *testing.T) {
	// Two empty strings followed by a real string: if "" were tabled, the
	// real string would land at ref index 1 rather than 0.
	data, err := EncodeAMF3Sequence(String(""), String(""), String("x"))
	if err != nil {
		t.Fatal(err)
	}
	values, _, err := DecodeAMF3Sequence(data)
	if err != nil {
		t.Fatal(err)
	}
	if values[2] != String("x") {
		t.Errorf("expected third value to decode as literal x, got %v", values[2])
	}
}

func TestDecodeStringRef_OutOfBounds(t *testing.T) {
	d := NewAmf3Decoder([]byte{amf3StringMarker, 0x02}) // ref index 1, empty table
	_, err := d.DecodeValue()
	if err == nil {
		t.Fatal("expected bad reference error")
	}
	var brErr *BadReferenceError
	if !errors.As(err, &brErr) || brErr.Kind != RefString {
		t.Fatalf("expected string BadReferenceError, got %v", err)
	}
}

func TestDecodeArray_DenseAndAssoc(t *testing.T) {
	arr := &Array{
		Dense: []Value{Integer(1), Integer(2)},
		Assoc: []Pair{{Key: "name", Value: String("arr")}},
	}
	encoded, err := EncodeAMF3Sequence(arr)
	if err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(encoded)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(*Array)
	if !ok {
		t.Fatalf("expected *Array, got %T", v)
	}
	if len(got.Dense) != 2 || len(got.Assoc) != 1 {
		t.Fatalf("unexpected array shape: %+v", got)
	}
	if got.Assoc[0].Key != "name" || got.Assoc[0].Value != String("arr") {
		t.Errorf("unexpected assoc entry: %+v", got.Assoc[0])
	}
}

func TestDecodeArray_Cyclic(t *testing.T) {
	arr := &Array{}
	arr.Dense = []Value{arr}
	e := NewAmf3Encoder()
	if err := e.EncodeValue(arr); err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(e.Bytes())
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(*Array)
	if !ok {
		t.Fatalf("expected *Array, got %T", v)
	}
	if len(got.Dense) != 1 || got.Dense[0] != Value(got) {
		t.Fatalf("expected self-referencing array to round trip its cycle")
	}
}

func TestDecodeObject_InlineTraitDynamic(t *testing.T) {
	obj := &Object{
		ClassName:    "",
		Dynamic:      true,
		DynamicProps: []Pair{{Key: "foo", Value: String("bar")}},
	}
	encoded, err := EncodeAMF3Sequence(obj)
	if err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(encoded)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v)
	}
	if len(got.DynamicProps) != 1 || got.DynamicProps[0].Key != "foo" {
		t.Fatalf("unexpected dynamic props: %+v", got.DynamicProps)
	}
}

func TestDecodeObject_SealedTraitRoundTrip(t *testing.T) {
	obj := &Object{
		ClassName: "com.example.Point",
		Sealed:    []Pair{{Key: "x", Value: Integer(1)}, {Key: "y", Value: Integer(2)}},
	}
	obj2 := &Object{
		ClassName: "com.example.Point",
		Sealed:    []Pair{{Key: "x", Value: Integer(3)}, {Key: "y", Value: Integer(4)}},
	}
	e := NewAmf3Encoder()
	if err := e.EncodeValue(obj); err != nil {
		t.Fatal(err)
	}
	if err := e.EncodeValue(obj2); err != nil {
		t.Fatal(err)
	}

	d := NewAmf3Decoder(e.Bytes())
	v1, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	v2, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	o1, ok := v1.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v1)
	}
	o2, ok := v2.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v2)
	}
	if o1.ClassName != "com.example.Point" || o2.ClassName != "com.example.Point" {
		t.Fatalf("expected trait-reference reuse to preserve class name on both objects")
	}
	if o2.Sealed[0].Value != Integer(3) || o2.Sealed[1].Value != Integer(4) {
		t.Errorf("unexpected second object sealed values: %+v", o2.Sealed)
	}
}

func TestDecodeObject_Externalizable_RegisteredRoundTrip(t *testing.T) {
	reg := NewExternalizableRegistry()
	reg.Register("com.example.Opaque",
		func(d *Amf3Decoder) (Value, error) {
			inner, err := d.DecodeValue()
			if err != nil {
				return nil, err
			}
			return &Object{ClassName: "com.example.Opaque", Externalizable: true, Sealed: []Pair{{Key: "inner", Value: inner}}}, nil
		},
		func(e *Amf3Encoder, v Value) error {
			obj := v.(*Object)
			return e.EncodeValue(obj.Sealed[0].Value)
		},
	)

	src := &Object{
		ClassName:      "com.example.Opaque",
		Externalizable: true,
		Sealed:         []Pair{{Key: "inner", Value: String("payload")}},
	}
	e := NewAmf3Encoder()
	e.SetRegistry(reg)
	if err := e.EncodeValue(src); err != nil {
		t.Fatal(err)
	}

	d := NewAmf3Decoder(e.Bytes())
	d.SetRegistry(reg)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(*Object)
	if !ok {
		t.Fatalf("expected *Object, got %T", v)
	}
	if got.Sealed[0].Value != String("payload") {
		t.Errorf("expected round-tripped externalizable payload, got %+v", got.Sealed)
	}
}

func TestDecodeObject_Externalizable_MissingRegistryFails(t *testing.T) {
	// Inline externalizable trait (header 0x07: no sealed names, not
	// dynamic) for a class the registry has no reader for.
	className := "com.example.Unregistered"
	data := append([]byte{amf3ObjectMarker, 0x07, byte(len(className)<<1 | 1)}, className...)
	d := NewAmf3Decoder(data)
	d.SetRegistry(NewExternalizableRegistry())
	_, err := d.DecodeValue()
	if err == nil {
		t.Fatal("expected ExternalizableNotRegisteredError")
	}
	var xErr *ExternalizableNotRegisteredError
	if !errors.As(err, &xErr) {
		t.Fatalf("expected ExternalizableNotRegisteredError, got %T: %v", err, err)
	}
}

func TestDecodeValue_Date(t *testing.T) {
	date := &Date{Millis: 1680033600123}
	encoded, err := EncodeAMF3Sequence(date)
	if err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(encoded)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(*Date)
	if !ok {
		t.Fatalf("expected *Date, got %T", v)
	}
	if got.Millis != date.Millis {
		t.Errorf("expected %d, got %d", date.Millis, got.Millis)
	}
}

func TestDecodeValue_ByteArrayAndXml(t *testing.T) {
	ba := &ByteArray{Bytes: []byte{1, 2, 3}}
	xml := &Xml{Content: "<a/>"}
	xmlDoc := &XmlDoc{Content: "<b/>"}
	encoded, err := EncodeAMF3Sequence(ba, xml, xmlDoc)
	if err != nil {
		t.Fatal(err)
	}
	values, _, err := DecodeAMF3Sequence(encoded)
	if err != nil {
		t.Fatal(err)
	}
	gotBa, ok := values[0].(*ByteArray)
	if !ok || string(gotBa.Bytes) != "\x01\x02\x03" {
		t.Errorf("unexpected ByteArray: %+v", values[0])
	}
	gotXml, ok := values[1].(*Xml)
	if !ok || gotXml.Content != "<a/>" {
		t.Errorf("unexpected Xml: %+v", values[1])
	}
	gotXmlDoc, ok := values[2].(*XmlDoc)
	if !ok || gotXmlDoc.Content != "<b/>" {
		t.Errorf("unexpected XmlDoc: %+v", values[2])
	}
}

func TestDecodeValue_Vectors(t *testing.T) {
	vi := &VectorInt{Fixed: true, Items: []int32{1, -2, 3}}
	vu := &VectorUint{Items: []uint32{1, 2, 3}}
	vd := &VectorDouble{Items: []float64{1.5, -2.5}}
	vo := &VectorObject{TypeName: "Foo", Items: []Value{String("a")}}
	encoded, err := EncodeAMF3Sequence(vi, vu, vd, vo)
	if err != nil {
		t.Fatal(err)
	}
	values, _, err := DecodeAMF3Sequence(encoded)
	if err != nil {
		t.Fatal(err)
	}
	gotVi, ok := values[0].(*VectorInt)
	if !ok || !gotVi.Fixed || len(gotVi.Items) != 3 || gotVi.Items[1] != -2 {
		t.Errorf("unexpected VectorInt: %+v", values[0])
	}
	gotVo, ok := values[3].(*VectorObject)
	if !ok || gotVo.TypeName != "Foo" {
		t.Errorf("unexpected VectorObject: %+v", values[3])
	}
}

func TestDecodeValue_Dictionary(t *testing.T) {
	dict := &Dictionary{
		Entries: []DictEntry{{Key: String("k"), Value: Integer(1)}},
	}
	encoded, err := EncodeAMF3Sequence(dict)
	if err != nil {
		t.Fatal(err)
	}
	d := NewAmf3Decoder(encoded)
	v, err := d.DecodeValue()
	if err != nil {
		t.Fatal(err)
	}
	got, ok := v.(*Dictionary)
	if !ok || len(got.Entries) != 1 || got.Entries[0].Key != String("k") {
		t.Fatalf("unexpected Dictionary: %+v", v)
	}
}

func TestDecodeValue_UnknownMarker(t *testing.T) {
	_, err := NewAmf3Decoder([]byte{0x7E}).DecodeValue()
	if err == nil {
		t.Fatal("expected error for unsupported marker")
	}
}

func TestDecodeValue_Truncated(t *testing.T) {
	_, err := NewAmf3Decoder(nil).DecodeValue()
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadU29_AllForms(t *testing.T) {
	testCases := []struct {
		data     []byte
		expected uint32
	}{
		{[]byte{0x00}, 0x00},
		{[]byte{0x7F}, 0x7F},
		{[]byte{0x81, 0x00}, 0x80},
		{[]byte{0xFF, 0x7F}, 0x3FFF},
		{[]byte{0x81, 0x80, 0x00}, 0x4000},
		{[]byte{0xFF, 0xFF, 0x7F}, 0x1FFFFF},
		{[]byte{0x80, 0xC0, 0x80, 0x00}, 0x200000},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFF}, 0x1FFFFFFF},
	}

	for i, tc := range testCases {
		t.Run(fmt.Sprintf("case_%d", i), func(t *testing.T) {
			pos := 0
			got, err := readU29(tc.data, &pos)
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.expected {
				t.Errorf("expected 0x%X, got 0x%X", tc.expected, got)
			}
			if pos != len(tc.data) {
				t.Errorf("expected cursor at %d, got %d", len(tc.data), pos)
			}
		})
	}
}

func TestReadU29_Truncated(t *testing.T) {
	pos := 0
	_, err := readU29(nil, &pos)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func BenchmarkDecodeAMF3_Integer(b *testing.B) {
	data := []byte{amf3IntegerMarker, 0x2A}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = DecodeAMF3Sequence(data)
	}
}

func BenchmarkDecodeAMF3_Object(b *testing.B) {
	obj := &Object{
		Dynamic: true,
		DynamicProps: []Pair{
			{Key: "name", Value: String("test")},
			{Key: "value", Value: Integer(123)},
			{Key: "flag", Value: Bool(true)},
		},
	}
	encoded, err := EncodeAMF3Sequence(obj)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = DecodeAMF3Sequence(encoded)
	}
}
