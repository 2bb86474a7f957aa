package remoting

import (
	"github.com/pkg/errors"

	"github.com/ssungk/goamf/pkg/amf"
)

// DecodePacket decodes one Remoting packet from buf, returning the packet
// and the number of bytes consumed. Every header and message body starts
// decoding in AMF0 mode with its own fresh reference tables (Invariant 4);
// the AVMPlus bridge inside amf.Amf0Decoder handles any embedded AMF3.
func DecodePacket(buf []byte, opts Options) (*Packet, int, error) {
	log := opts.logger()
	pos := 0

	version, pos, err := readU16(buf, pos)
	if err != nil {
		return nil, pos, errors.Wrap(err, "remoting: reading packet version")
	}

	headerCount, pos, err := readU16(buf, pos)
	if err != nil {
		return nil, pos, errors.Wrap(err, "remoting: reading header count")
	}

	pkt := &Packet{Version: version}
	budget := opts.maxPacketSize()

	for i := 0; i < int(headerCount); i++ {
		var h Header
		start := pos
		h, pos, err = decodeHeader(buf, pos, opts, log)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "remoting: decoding header %d", i)
		}
		budget -= int64(pos - start)
		if budget < 0 {
			return nil, pos, errors.Wrap(amf.ErrOutOfRange, "remoting: packet exceeds MaxPacketSize")
		}
		pkt.Headers = append(pkt.Headers, h)
	}

	messageCount, pos, err := readU16(buf, pos)
	if err != nil {
		return nil, pos, errors.Wrap(err, "remoting: reading message count")
	}

	for i := 0; i < int(messageCount); i++ {
		var m Message
		start := pos
		m, pos, err = decodeMessage(buf, pos, opts, log)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "remoting: decoding message %d", i)
		}
		budget -= int64(pos - start)
		if budget < 0 {
			return nil, pos, errors.Wrap(amf.ErrOutOfRange, "remoting: packet exceeds MaxPacketSize")
		}
		pkt.Messages = append(pkt.Messages, m)
	}

	log.debug("decoded remoting packet",
		"version", pkt.Version, "headers", len(pkt.Headers), "messages", len(pkt.Messages))

	return pkt, pos, nil
}

func decodeHeader(buf []byte, pos int, opts Options, log *Logger) (Header, int, error) {
	name, pos, err := readUTF8(buf, pos)
	if err != nil {
		return Header{}, pos, errors.Wrap(err, "reading header name")
	}
	mustUnderstandByte, pos, err := readU8(buf, pos)
	if err != nil {
		return Header{}, pos, errors.Wrap(err, "reading header mustUnderstand")
	}
	contentLength, pos, err := readI32(buf, pos)
	if err != nil {
		return Header{}, pos, errors.Wrap(err, "reading header contentLength")
	}

	value, next, err := decodeLengthBoundedValue(buf, pos, contentLength, opts, log, "header:"+name)
	if err != nil {
		return Header{}, pos, err
	}

	return Header{Name: name, MustUnderstand: mustUnderstandByte != 0, Value: value}, next, nil
}

func decodeMessage(buf []byte, pos int, opts Options, log *Logger) (Message, int, error) {
	targetURI, pos, err := readUTF8(buf, pos)
	if err != nil {
		return Message{}, pos, errors.Wrap(err, "reading message targetUri")
	}
	responseURI, pos, err := readUTF8(buf, pos)
	if err != nil {
		return Message{}, pos, errors.Wrap(err, "reading message responseUri")
	}
	bodyLength, pos, err := readI32(buf, pos)
	if err != nil {
		return Message{}, pos, errors.Wrap(err, "reading message bodyLength")
	}

	value, next, err := decodeLengthBoundedValue(buf, pos, bodyLength, opts, log, "message:"+targetURI)
	if err != nil {
		return Message{}, pos, err
	}

	return Message{TargetURI: targetURI, ResponseURI: responseURI, Value: value}, next, nil
}

// decodeLengthBoundedValue decodes exactly one AMF0 value starting at pos
// and returns the cursor position to resume the outer packet from, per
// §4.5's length-handling rule: a nonnegative declaredLength wins over
// actual consumption (trailing bytes inside the declared window are
// silently discarded), a negative declaredLength (UnknownLength) defers
// entirely to actual consumption.
func decodeLengthBoundedValue(buf []byte, pos int, declaredLength int32, opts Options, log *Logger, tag string) (amf.Value, int, error) {
	d := amf.NewAmf0Decoder(buf[pos:])
	if opts.AMF.Registry != nil {
		d.SetRegistry(opts.AMF.Registry)
	}
	if opts.AMF.MaxAllocation > 0 {
		d.SetMaxAllocation(opts.AMF.MaxAllocation)
	}

	value, err := d.DecodeValue()
	if err != nil {
		return nil, pos, errors.Wrapf(err, "decoding %s value", tag)
	}
	consumed := d.Pos()

	if declaredLength < 0 {
		return value, pos + consumed, nil
	}

	next := pos + int(declaredLength)
	if next > len(buf) {
		return nil, pos, errors.Wrapf(amf.ErrTruncated, "%s: declared length %d exceeds remaining buffer", tag, declaredLength)
	}
	if discarded := int(declaredLength) - consumed; discarded != 0 {
		log.warn("declared length does not match bytes consumed", "tag", tag, "declaredLength", declaredLength, "consumed", consumed, "discardedBytes", discarded)
	}
	return value, next, nil
}
