package wire

import (
	"encoding/binary"
	"errors"
)

// HeaderLen is the fixed size of the DNS message header.
const HeaderLen = 12

var ErrShortHeader = errors.New("wire: buffer shorter than header")

// Header is the 12-byte fixed message header, spec.md §4.2: "Fixed 12-byte
// header (id, flags1, flags2, qdcount, ancount, nscount, arcount) ...
// flags1 holds QR(1), OPCODE(4), AA, TC, RD. flags2 holds RA, Z(1), AD, CD,
// RCODE(4)."
type Header struct {
	ID uint16

	QR     bool
	Opcode uint8
	AA     bool
	TC     bool
	RD     bool

	RA    bool
	Z     bool
	AD    bool
	CD    bool
	Rcode uint8

	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// DecodeHeader reads the 12-byte header from the start of msg.
func DecodeHeader(msg []byte) (Header, error) {
	if len(msg) < HeaderLen {
		return Header{}, ErrShortHeader
	}
	flags1 := msg[2]
	flags2 := msg[3]
	h := Header{
		ID:      binary.BigEndian.Uint16(msg[0:2]),
		QR:      flags1&0x80 != 0,
		Opcode:  (flags1 >> 3) & 0x0F,
		AA:      flags1&0x04 != 0,
		TC:      flags1&0x02 != 0,
		RD:      flags1&0x01 != 0,
		RA:      flags2&0x80 != 0,
		Z:       flags2&0x40 != 0,
		AD:      flags2&0x20 != 0,
		CD:      flags2&0x10 != 0,
		Rcode:   flags2 & 0x0F,
		QDCount: binary.BigEndian.Uint16(msg[4:6]),
		ANCount: binary.BigEndian.Uint16(msg[6:8]),
		NSCount: binary.BigEndian.Uint16(msg[8:10]),
		ARCount: binary.BigEndian.Uint16(msg[10:12]),
	}
	return h, nil
}

// Encode appends the header's 12-byte wire form to buf.
func (h Header) Encode(buf []byte) []byte {
	var b [HeaderLen]byte
	binary.BigEndian.PutUint16(b[0:2], h.ID)

	var flags1 byte
	if h.QR {
		flags1 |= 0x80
	}
	flags1 |= (h.Opcode & 0x0F) << 3
	if h.AA {
		flags1 |= 0x04
	}
	if h.TC {
		flags1 |= 0x02
	}
	if h.RD {
		flags1 |= 0x01
	}
	b[2] = flags1

	var flags2 byte
	if h.RA {
		flags2 |= 0x80
	}
	if h.Z {
		flags2 |= 0x40
	}
	if h.AD {
		flags2 |= 0x20
	}
	if h.CD {
		flags2 |= 0x10
	}
	flags2 |= h.Rcode & 0x0F
	b[3] = flags2

	binary.BigEndian.PutUint16(b[4:6], h.QDCount)
	binary.BigEndian.PutUint16(b[6:8], h.ANCount)
	binary.BigEndian.PutUint16(b[8:10], h.NSCount)
	binary.BigEndian.PutUint16(b[10:12], h.ARCount)
	return append(buf, b[:]...)
}

// SetCounts rewrites the four section-count fields in an already-encoded
// header at the start of buf, used by the Builder's Finish to write the
// final counts once every section has been built.
func SetCounts(buf []byte, qd, an, ns, ar uint16) {
	binary.BigEndian.PutUint16(buf[4:6], qd)
	binary.BigEndian.PutUint16(buf[6:8], an)
	binary.BigEndian.PutUint16(buf[8:10], ns)
	binary.BigEndian.PutUint16(buf[10:12], ar)
}

// SetTC sets or clears the TC bit in an already-encoded header.
func SetTC(buf []byte, tc bool) {
	if tc {
		buf[2] |= 0x02
	} else {
		buf[2] &^= 0x02
	}
}

// SetRcode rewrites the 4-bit RCODE field in an already-encoded header,
// leaving RA/Z/AD/CD untouched.
func SetRcode(buf []byte, rcode uint8) {
	buf[3] = (buf[3] &^ 0x0F) | (rcode & 0x0F)
}
