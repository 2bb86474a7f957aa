// Package remoting implements the AMF Remoting packet envelope (C5): the
// outer framing that Red5, AMFPHP, and similar gateways use to carry one or
// more AMF0 values (each optionally bridging into AMF3 via AVMPlus) over a
// single HTTP/TCP exchange.
package remoting

import "github.com/ssungk/goamf/pkg/amf"

// UnknownLength is the contentLength/bodyLength sentinel meaning "not
// declared by the sender" — the decoder falls back to measuring actual
// bytes consumed instead of trusting the prefix.
const UnknownLength int32 = -1

// Header is one Remoting packet header: a named, optionally-mandatory value
// attached to the packet (e.g. "DSId" carrying a session id).
type Header struct {
	Name           string
	MustUnderstand bool
	Value          amf.Value
}

// Message is one Remoting packet body: a request or response envelope
// addressed by a target/response service URI pair.
type Message struct {
	TargetURI   string
	ResponseURI string
	Value       amf.Value
}

// Packet is the full Remoting envelope: a version tag plus headers and
// messages, each carrying exactly one AMF0 value (which may itself bridge
// into AMF3 via AVMPlus for any individual header/message body).
type Packet struct {
	Version  uint16
	Headers  []Header
	Messages []Message
}

// DefaultVersion is the AMF0 Remoting version Red5/AMFPHP gateways use when
// a caller does not set Packet.Version explicitly.
const DefaultVersion uint16 = 0
