package remoting

import (
	"github.com/pkg/errors"

	"github.com/ssungk/goamf/internal/buf"
	"github.com/ssungk/goamf/pkg/amf"
)

// bufWriter is the minimal surface the header/message writers need from
// their destination. EncodePacket passes the buf.BoundedWriter it assembles
// the whole packet into; each value is measured beforehand with its own
// amf.Amf0Encoder.
type bufWriter interface {
	Write(p []byte) (int, error)
	WriteByte(b byte) error
}

// initialScratchSize is the starting capacity for the packet-assembly
// scratch buffer; typical Remoting packets (a DSId header plus a handful
// of small messages) fit comfortably without a single retry.
const initialScratchSize = buf.Size4K

// EncodePacket encodes pkt into a Remoting packet. Per §4.5, each
// header/message value is encoded first (into a growable amf.Amf0Encoder,
// which never needs a size guess) to get its exact length, then the whole
// packet is assembled into a fixed-capacity buf.BoundedWriter; if assembly
// overflows that capacity the writer is released and assembly retried into
// a freshly pooled writer at double the capacity, up to buf.MaxScratchSize.
func EncodePacket(pkt *Packet, opts Options) ([]byte, error) {
	log := opts.logger()

	capacity := initialScratchSize
	for {
		w := buf.NewBoundedWriter(capacity)
		out, err := assemblePacket(w, pkt, opts)
		if err == nil {
			result := append([]byte(nil), out...)
			w.Release()
			return result, nil
		}
		w.Release()
		if !errors.Is(err, buf.ErrOverflow) {
			return nil, err
		}
		capacity *= 2
		if capacity > buf.MaxScratchSize {
			return nil, errors.Wrap(amf.ErrOutOfRange, "remoting: packet exceeds MaxScratchSize")
		}
		log.debug("retrying packet assembly with doubled scratch capacity", "capacity", capacity)
	}
}

func assemblePacket(w *buf.BoundedWriter, pkt *Packet, opts Options) ([]byte, error) {
	if err := writeU16(w, pkt.Version); err != nil {
		return nil, err
	}
	if err := writeU16(w, uint16(len(pkt.Headers))); err != nil {
		return nil, err
	}
	for i := range pkt.Headers {
		if err := encodeHeader(w, &pkt.Headers[i], opts); err != nil {
			return nil, errors.Wrapf(err, "remoting: encoding header %d", i)
		}
	}
	if err := writeU16(w, uint16(len(pkt.Messages))); err != nil {
		return nil, err
	}
	for i := range pkt.Messages {
		if err := encodeMessage(w, &pkt.Messages[i], opts); err != nil {
			return nil, errors.Wrapf(err, "remoting: encoding message %d", i)
		}
	}
	return w.Bytes(), nil
}

func encodeHeader(w bufWriter, h *Header, opts Options) error {
	if err := writeUTF8(w, h.Name); err != nil {
		return err
	}
	mustUnderstand := byte(0)
	if h.MustUnderstand {
		mustUnderstand = 1
	}
	if err := writeU8(w, mustUnderstand); err != nil {
		return err
	}
	return encodeLengthPrefixedValue(w, h.Value, opts)
}

func encodeMessage(w bufWriter, m *Message, opts Options) error {
	if err := writeUTF8(w, m.TargetURI); err != nil {
		return err
	}
	if err := writeUTF8(w, m.ResponseURI); err != nil {
		return err
	}
	return encodeLengthPrefixedValue(w, m.Value, opts)
}

// encodeLengthPrefixedValue encodes v with amf.NewAmf0Encoder (always
// growable, never overflows), then writes its exact byte length as an i32
// prefix followed by the bytes themselves into w.
func encodeLengthPrefixedValue(w bufWriter, v amf.Value, opts Options) error {
	e := amf.NewAmf0Encoder()
	if opts.AMF.Registry != nil {
		e.SetRegistry(opts.AMF.Registry)
	}
	if err := e.EncodeValue(v); err != nil {
		return errors.Wrap(err, "remoting: encoding value")
	}
	body := e.Bytes()

	if err := writeI32(w, int32(len(body))); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}
