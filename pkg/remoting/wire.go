package remoting

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ssungk/goamf/pkg/amf"
)

func readU8(buf []byte, pos int) (byte, int, error) {
	if pos+1 > len(buf) {
		return 0, pos, errors.Wrap(amf.ErrTruncated, "remoting: reading u8")
	}
	return buf[pos], pos + 1, nil
}

func readU16(buf []byte, pos int) (uint16, int, error) {
	if pos+2 > len(buf) {
		return 0, pos, errors.Wrap(amf.ErrTruncated, "remoting: reading u16")
	}
	return binary.BigEndian.Uint16(buf[pos : pos+2]), pos + 2, nil
}

func readI32(buf []byte, pos int) (int32, int, error) {
	if pos+4 > len(buf) {
		return 0, pos, errors.Wrap(amf.ErrTruncated, "remoting: reading i32")
	}
	return int32(binary.BigEndian.Uint32(buf[pos : pos+4])), pos + 4, nil
}

func readUTF8(buf []byte, pos int) (string, int, error) {
	n, pos, err := readU16(buf, pos)
	if err != nil {
		return "", pos, err
	}
	end := pos + int(n)
	if end > len(buf) {
		return "", pos, errors.Wrap(amf.ErrTruncated, "remoting: reading utf8 string body")
	}
	return string(buf[pos:end]), end, nil
}

func writeU8(w bufWriter, v byte) error {
	return w.WriteByte(v)
}

func writeU16(w bufWriter, v uint16) error {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeI32(w bufWriter, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}

func writeUTF8(w bufWriter, s string) error {
	if len(s) > 0xFFFF {
		return errors.Wrap(amf.ErrOutOfRange, "remoting: utf8 string exceeds u16 length")
	}
	if err := writeU16(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}
