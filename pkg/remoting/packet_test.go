package remoting

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ssungk/goamf/pkg/amf"
)

func TestEncodeDecodePacket_RoundTrip(t *testing.T) {
	pkt := &Packet{
		Version: DefaultVersion,
		Headers: []Header{
			{Name: "DSId", MustUnderstand: false, Value: amf.String("nil")},
		},
		Messages: []Message{
			{
				TargetURI:   "PlayerService.login",
				ResponseURI: "/1",
				Value: &amf.Object{
					ClassName: "com.ninjasaga.protocol.CommandEnvelope",
					Dynamic:   true,
					DynamicProps: []amf.Pair{
						{Key: "cmd", Value: amf.String("login")},
						{Key: "arg", Value: &amf.Object{
							ClassName: "com.ninjasaga.protocol.LoginRequest",
							Dynamic:   true,
							DynamicProps: []amf.Pair{
								{Key: "username", Value: amf.String("player1")},
							},
						}},
					},
				},
			},
		},
	}

	out, err := EncodePacket(pkt, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, n, err := DecodePacket(out, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(out) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(out), n)
	}

	if decoded.Version != pkt.Version {
		t.Errorf("version = %d, want %d", decoded.Version, pkt.Version)
	}
	if len(decoded.Headers) != 1 || decoded.Headers[0].Name != "DSId" {
		t.Fatalf("unexpected headers: %+v", decoded.Headers)
	}
	if len(decoded.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(decoded.Messages))
	}
	if decoded.Messages[0].TargetURI != "PlayerService.login" {
		t.Errorf("targetUri = %q", decoded.Messages[0].TargetURI)
	}
	if decoded.Messages[0].ResponseURI != "/1" {
		t.Errorf("responseUri = %q", decoded.Messages[0].ResponseURI)
	}

	body, ok := decoded.Messages[0].Value.(*amf.Object)
	if !ok {
		t.Fatalf("expected *amf.Object body, got %T", decoded.Messages[0].Value)
	}
	if body.ClassName != "com.ninjasaga.protocol.CommandEnvelope" {
		t.Errorf("body class = %q", body.ClassName)
	}

	var arg *amf.Object
	for _, p := range body.DynamicProps {
		if p.Key == "arg" {
			arg, _ = p.Value.(*amf.Object)
		}
	}
	if arg == nil || arg.ClassName != "com.ninjasaga.protocol.LoginRequest" {
		t.Fatalf("expected nested LoginRequest, got %+v", arg)
	}
}

func TestEncodeDecodePacket_AVM3BridgedBody(t *testing.T) {
	loginRequest := &amf.Object{
		ClassName: "com.ninjasaga.protocol.LoginRequest",
		Sealed: []amf.Pair{
			{Key: "username", Value: amf.String("player1")},
		},
	}
	envelope := &amf.Object{
		ClassName: "com.ninjasaga.protocol.CommandEnvelope",
		Sealed: []amf.Pair{
			{Key: "cmd", Value: amf.String("login")},
			{Key: "arg", Value: loginRequest},
		},
	}

	pkt := &Packet{
		Version: DefaultVersion,
		Headers: []Header{
			{Name: "DSId", MustUnderstand: false, Value: amf.String("nil")},
		},
		Messages: []Message{
			{
				TargetURI:   "PlayerService.login",
				ResponseURI: "/1",
				Value:       &amf.AVM3{Value: envelope},
			},
		},
	}

	out, err := EncodePacket(pkt, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded, n, err := DecodePacket(out, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(out) {
		t.Fatalf("expected to consume all %d bytes, consumed %d", len(out), n)
	}

	if decoded.Version != pkt.Version {
		t.Errorf("version = %d, want %d", decoded.Version, pkt.Version)
	}
	if len(decoded.Headers) != 1 || decoded.Headers[0].Name != "DSId" {
		t.Fatalf("unexpected headers: %+v", decoded.Headers)
	}
	if diff := cmp.Diff(amf.String("nil"), decoded.Headers[0].Value); diff != "" {
		t.Errorf("header value mismatch (-want +got):\n%s", diff)
	}

	if len(decoded.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(decoded.Messages))
	}
	if decoded.Messages[0].TargetURI != "PlayerService.login" {
		t.Errorf("targetUri = %q", decoded.Messages[0].TargetURI)
	}
	if decoded.Messages[0].ResponseURI != "/1" {
		t.Errorf("responseUri = %q", decoded.Messages[0].ResponseURI)
	}

	// The AVMPlus bridge is transparent on decode: the body comes back as a
	// plain *amf.Object, not wrapped in *amf.AVM3.
	body, ok := decoded.Messages[0].Value.(*amf.Object)
	if !ok {
		t.Fatalf("expected *amf.Object body (bridge unwrapped), got %T", decoded.Messages[0].Value)
	}
	if body.ClassName != "com.ninjasaga.protocol.CommandEnvelope" {
		t.Errorf("body class = %q", body.ClassName)
	}

	var arg *amf.Object
	for _, p := range body.Sealed {
		if p.Key == "arg" {
			arg, _ = p.Value.(*amf.Object)
		}
	}
	if arg == nil || arg.ClassName != "com.ninjasaga.protocol.LoginRequest" {
		t.Fatalf("expected nested LoginRequest via AVMPlus bridge, got %+v", arg)
	}
}

func TestDecodePacket_EmptyPacket(t *testing.T) {
	out, err := EncodePacket(&Packet{Version: DefaultVersion}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decoded, n, err := DecodePacket(out, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(out) {
		t.Errorf("consumed %d, want %d", n, len(out))
	}
	if len(decoded.Headers) != 0 || len(decoded.Messages) != 0 {
		t.Errorf("expected empty packet, got %+v", decoded)
	}
}

func TestDecodePacket_UnknownLengthDefersToActualConsumption(t *testing.T) {
	pkt := &Packet{
		Version: DefaultVersion,
		Messages: []Message{
			{TargetURI: "Svc.method", ResponseURI: "/1", Value: amf.Double(42)},
		},
	}
	out, err := EncodePacket(pkt, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Overwrite the bodyLength field with the UnknownLength sentinel.
	// Layout: version(2) headerCount(2) messageCount(2) targetUri(2+len)
	// responseUri(2+len) bodyLength(4) value.
	pos := 2 + 2 + 2
	pos += 2 + len("Svc.method")
	pos += 2 + len("/1")
	out[pos] = 0xFF
	out[pos+1] = 0xFF
	out[pos+2] = 0xFF
	out[pos+3] = 0xFF

	decoded, n, err := DecodePacket(out, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(out) {
		t.Fatalf("consumed %d, want %d", n, len(out))
	}
	if diff := cmp.Diff(amf.Double(42), decoded.Messages[0].Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePacket_DeclaredLengthDiscardsTrailingBytes(t *testing.T) {
	pkt := &Packet{
		Version: DefaultVersion,
		Headers: []Header{
			{Name: "h", Value: amf.Double(1)},
		},
	}
	out, err := EncodePacket(pkt, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Inflate the header's contentLength prefix beyond its actual encoded
	// size and splice padding in right after its body (before messageCount)
	// so the declared window covers exactly the padded region.
	lengthPos := 2 + 2 + 2 + len("h") + 1
	bodyStart := lengthPos + 4
	originalBodyLen := int(out[lengthPos+3])
	bodyEnd := bodyStart + originalBodyLen

	padding := []byte{0xAA, 0xAA, 0xAA, 0xAA}
	out[lengthPos+3] = byte(originalBodyLen + len(padding))

	padded := make([]byte, 0, len(out)+len(padding))
	padded = append(padded, out[:bodyEnd]...)
	padded = append(padded, padding...)
	padded = append(padded, out[bodyEnd:]...)

	decoded, n, err := DecodePacket(padded, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(padded) {
		t.Errorf("expected to consume the full declared window (%d), consumed %d", len(padded), n)
	}
	if diff := cmp.Diff(amf.Double(1), decoded.Headers[0].Value); diff != "" {
		t.Errorf("value mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePacket_Truncated(t *testing.T) {
	_, _, err := DecodePacket([]byte{0x00}, Options{})
	if err == nil {
		t.Fatal("expected an error decoding a truncated packet")
	}
}

func TestEnsureDSId(t *testing.T) {
	pkt := &Packet{}
	pkt.EnsureDSId()
	h, ok := pkt.HeaderByName(DSIdHeaderName)
	if !ok {
		t.Fatal("expected a DSId header to be added")
	}
	if _, ok := h.Value.(amf.String); !ok {
		t.Fatalf("expected DSId value to be a String, got %T", h.Value)
	}

	// A second call must not add a duplicate.
	pkt.EnsureDSId()
	count := 0
	for _, hd := range pkt.Headers {
		if hd.Name == DSIdHeaderName {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one DSId header, got %d", count)
	}
}
