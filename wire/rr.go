package wire

import (
	"encoding/binary"
	"errors"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

var (
	ErrFormErr     = errors.New("wire: malformed message")
	ErrRdlenMismatch = errors.New("wire: rdata length does not match rdlength")
)

// Question is the single question carried by a message (spec.md §4.2:
// "qdcount MUST be 0 or 1").
type Question struct {
	Name   dname.Name
	QType  uint16
	QClass uint16
}

// RR is one resource record. RData is always a normalized, fully
// uncompressed encoding of the rdata: any name fields the type descriptor
// identifies have already been resolved against the enclosing message's
// compression pointers and re-serialized in full, so an RR never aliases
// or depends on the buffer it was parsed from (spec.md §4.2 parse
// contract: "resolve any embedded compressed names into an owned form").
type RR struct {
	Name  dname.Name
	Type  uint16
	Class uint16
	TTL   uint32
	RData []byte
}

// DecodeQuestion parses one question at offset and returns it and the
// offset just past it.
func DecodeQuestion(msg []byte, offset int) (Question, int, error) {
	name, pos, err := dname.Parse(msg, offset)
	if err != nil {
		return Question{}, 0, err
	}
	if pos+4 > len(msg) {
		return Question{}, 0, dname.ErrTruncated
	}
	q := Question{
		Name:   name,
		QType:  binary.BigEndian.Uint16(msg[pos : pos+2]),
		QClass: binary.BigEndian.Uint16(msg[pos+2 : pos+4]),
	}
	return q, pos + 4, nil
}

// EncodeQuestion appends q to buf, compressing the name against c if c is
// non-nil.
func EncodeQuestion(buf []byte, q Question, c *dname.Compressor) []byte {
	buf = c.Append(buf, q.Name)
	var b [4]byte
	binary.BigEndian.PutUint16(b[0:2], q.QType)
	binary.BigEndian.PutUint16(b[2:4], q.QClass)
	return append(buf, b[:]...)
}

// DecodeRR parses one resource record at offset and returns it and the
// offset just past it. Names embedded in the rdata are resolved to owned,
// uncompressed form per the type's descriptor; unknown types (including
// OPT and TSIG, which callers should special-case before reaching here)
// are kept as opaque rdata, RFC 3597 style.
func DecodeRR(msg []byte, offset int) (RR, int, error) {
	name, pos, err := dname.Parse(msg, offset)
	if err != nil {
		return RR{}, 0, err
	}
	if pos+10 > len(msg) {
		return RR{}, 0, dname.ErrTruncated
	}
	rr := RR{
		Name:  name,
		Type:  binary.BigEndian.Uint16(msg[pos : pos+2]),
		Class: binary.BigEndian.Uint16(msg[pos+2 : pos+4]),
		TTL:   binary.BigEndian.Uint32(msg[pos+4 : pos+8]),
	}
	rdlen := int(binary.BigEndian.Uint16(msg[pos+8 : pos+10]))
	pos += 10
	if pos+rdlen > len(msg) {
		return RR{}, 0, dname.ErrTruncated
	}
	rdataEnd := pos + rdlen

	rdata, err := decodeRData(msg, pos, rdataEnd, rr.Type)
	if err != nil {
		return RR{}, 0, err
	}
	rr.RData = rdata
	return rr, rdataEnd, nil
}

// decodeRData normalizes the rdata of a record of the given type, walking
// its descriptor (if any) so that any embedded compressed names are
// expanded to owned, uncompressed form. start/end bound the rdata region;
// name fields may still point outside it via compression pointers into
// the rest of msg.
func decodeRData(msg []byte, start, end int, rtype uint16) ([]byte, error) {
	desc, ok := rrtype.Lookup(rtype)
	if !ok {
		out := make([]byte, end-start)
		copy(out, msg[start:end])
		return out, nil
	}

	var out []byte
	pos := start
	for i, f := range desc.Fields {
		last := i == len(desc.Fields)-1
		switch f.Kind {
		case rrtype.FieldCompressibleName, rrtype.FieldUncompressibleName:
			n, next, err := dname.Parse(msg, pos)
			if err != nil {
				return nil, err
			}
			out = dname.AppendUncompressed(out, n)
			pos = next
		case rrtype.FieldUint8:
			if pos+1 > end {
				return nil, ErrRdlenMismatch
			}
			out = append(out, msg[pos])
			pos++
		case rrtype.FieldUint16:
			if pos+2 > end {
				return nil, ErrRdlenMismatch
			}
			out = append(out, msg[pos:pos+2]...)
			pos += 2
		case rrtype.FieldUint32:
			if pos+4 > end {
				return nil, ErrRdlenMismatch
			}
			out = append(out, msg[pos:pos+4]...)
			pos += 4
		case rrtype.FieldIPv4:
			if pos+4 > end {
				return nil, ErrRdlenMismatch
			}
			out = append(out, msg[pos:pos+4]...)
			pos += 4
		case rrtype.FieldIPv6:
			if pos+16 > end {
				return nil, ErrRdlenMismatch
			}
			out = append(out, msg[pos:pos+16]...)
			pos += 16
		case rrtype.FieldCharString:
			if pos >= end {
				return nil, ErrRdlenMismatch
			}
			l := int(msg[pos])
			if pos+1+l > end {
				return nil, ErrRdlenMismatch
			}
			out = append(out, msg[pos:pos+1+l]...)
			pos += 1 + l
		case rrtype.FieldCharStringList:
			for pos < end {
				l := int(msg[pos])
				if pos+1+l > end {
					return nil, ErrRdlenMismatch
				}
				out = append(out, msg[pos:pos+1+l]...)
				pos += 1 + l
			}
		case rrtype.FieldOpaqueRemaining:
			out = append(out, msg[pos:end]...)
			pos = end
		}
		if last && pos != end && f.Kind != rrtype.FieldOpaqueRemaining && f.Kind != rrtype.FieldCharStringList {
			// Trailing bytes beyond the last declared field are only
			// legitimate for opaque/list tails; for fixed-shape records
			// they indicate a malformed rdlength.
			return nil, ErrRdlenMismatch
		}
	}
	return out, nil
}

// EncodeRR appends rr to buf, compressing any rdata name fields the
// descriptor marks compressible. The rdlength field is back-patched once
// the rdata has been written.
func EncodeRR(buf []byte, rr RR, c *dname.Compressor) []byte {
	buf = c.Append(buf, rr.Name)
	var head [8]byte
	binary.BigEndian.PutUint16(head[0:2], rr.Type)
	binary.BigEndian.PutUint16(head[2:4], rr.Class)
	binary.BigEndian.PutUint32(head[4:8], rr.TTL)
	buf = append(buf, head[:]...)

	rdlenPos := len(buf)
	buf = append(buf, 0, 0) // placeholder rdlength

	rdataStart := len(buf)
	buf = encodeRData(buf, rr.Type, rr.RData, c)
	rdlen := len(buf) - rdataStart
	binary.BigEndian.PutUint16(buf[rdlenPos:rdlenPos+2], uint16(rdlen))
	return buf
}

// encodeRData re-walks rdata (which is always normalized/uncompressed, as
// produced by decodeRData or built directly by a caller) re-emitting name
// fields through c so they can compress against earlier names in the
// message, and copying every other field verbatim.
func encodeRData(buf []byte, rtype uint16, rdata []byte, c *dname.Compressor) []byte {
	desc, ok := rrtype.Lookup(rtype)
	if !ok {
		return append(buf, rdata...)
	}

	pos := 0
	for _, f := range desc.Fields {
		switch f.Kind {
		case rrtype.FieldCompressibleName:
			n, next, err := dname.Parse(rdata, pos)
			if err != nil {
				// Caller-constructed rdata should always be well formed;
				// fall back to verbatim copy of the remainder rather than
				// silently dropping bytes.
				return append(buf, rdata[pos:]...)
			}
			buf = c.Append(buf, n)
			pos = next
		case rrtype.FieldUncompressibleName:
			n, next, err := dname.Parse(rdata, pos)
			if err != nil {
				return append(buf, rdata[pos:]...)
			}
			buf = dname.AppendUncompressed(buf, n)
			pos = next
		case rrtype.FieldUint8:
			buf = append(buf, rdata[pos])
			pos++
		case rrtype.FieldUint16:
			buf = append(buf, rdata[pos:pos+2]...)
			pos += 2
		case rrtype.FieldUint32:
			buf = append(buf, rdata[pos:pos+4]...)
			pos += 4
		case rrtype.FieldIPv4:
			buf = append(buf, rdata[pos:pos+4]...)
			pos += 4
		case rrtype.FieldIPv6:
			buf = append(buf, rdata[pos:pos+16]...)
			pos += 16
		case rrtype.FieldCharString:
			l := int(rdata[pos])
			buf = append(buf, rdata[pos:pos+1+l]...)
			pos += 1 + l
		case rrtype.FieldCharStringList:
			buf = append(buf, rdata[pos:]...)
			pos = len(rdata)
		case rrtype.FieldOpaqueRemaining:
			buf = append(buf, rdata[pos:]...)
			pos = len(rdata)
		}
	}
	return buf
}
