package remoting

import "github.com/ssungk/goamf/pkg/amf"

// DefaultMaxPacketSize bounds a single packet's total decoded size
// (headers + messages), independent of amf.Options.MaxAllocation which
// bounds allocation inside one value's decode. Guards against a forged
// headerCount/messageCount driving unbounded iteration.
const DefaultMaxPacketSize = 64 << 20 // 64 MiB

// Options configures DecodePacket and EncodePacket.
type Options struct {
	// AMF controls the options forwarded to each header/message value's
	// AMF0 decoder/encoder (registry, allocation ceiling).
	AMF amf.Options
	// MaxPacketSize overrides DefaultMaxPacketSize; zero uses the default.
	MaxPacketSize int64
	// Logger receives envelope-level diagnostics (header/message counts,
	// discarded trailing bytes, scratch-buffer retries). A nil Logger
	// disables logging.
	Logger *Logger
}

func (o Options) maxPacketSize() int64 {
	if o.MaxPacketSize > 0 {
		return o.MaxPacketSize
	}
	return DefaultMaxPacketSize
}

func (o Options) logger() *Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return nil
}
