package wire

import (
	"encoding/binary"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

// DefaultUDPSize is the response size cap applied when the client sent no
// EDNS OPT record, spec.md §4.4.2: "512 if no EDNS".
const DefaultUDPSize = 512

// OptionNSID is the EDNS0 option code for the Name Server Identifier
// option (RFC 5001), the only option this codec recognizes per spec.md
// §6: "Recognized options: NSID (echoed when configured)."
const OptionNSID uint16 = 3

// EDNSOption is one (code, data) pair from an OPT RR's rdata.
type EDNSOption struct {
	Code uint16
	Data []byte
}

// OPT holds the decoded fields of an EDNS0 pseudo-RR, spec.md §4.2: "Owner
// MUST be root, type=OPT(41). Class field carries the requestor payload
// size. TTL field encodes extended-RCODE(8) | version(8) | flags(16) with
// the DO bit at position 15 of the flags half."
type OPT struct {
	UDPSize      uint16
	ExtendedRcode uint8
	Version      uint8
	DO           bool
	Options      []EDNSOption
}

// DecodeOPT interprets an already-parsed RR of type OPT.
func DecodeOPT(rr RR) OPT {
	o := OPT{
		UDPSize:       rr.Class,
		ExtendedRcode: uint8(rr.TTL >> 24),
		Version:       uint8(rr.TTL >> 16),
		DO:            rr.TTL&0x00008000 != 0,
	}
	data := rr.RData
	for len(data) >= 4 {
		code := binary.BigEndian.Uint16(data[0:2])
		l := binary.BigEndian.Uint16(data[2:4])
		if int(l) > len(data)-4 {
			break
		}
		o.Options = append(o.Options, EDNSOption{Code: code, Data: append([]byte{}, data[4:4+l]...)})
		data = data[4+l:]
	}
	return o
}

// EncodeOPT builds the RR form of o combined with a base RCODE (the low 4
// bits live in the header; the high 8 bits live here).
func EncodeOPT(o OPT, baseRcodeHigh uint8) RR {
	var rdata []byte
	for _, opt := range o.Options {
		var head [4]byte
		binary.BigEndian.PutUint16(head[0:2], opt.Code)
		binary.BigEndian.PutUint16(head[2:4], uint16(len(opt.Data)))
		rdata = append(rdata, head[:]...)
		rdata = append(rdata, opt.Data...)
	}
	ttl := uint32(baseRcodeHigh)<<24 | uint32(o.Version)<<16
	if o.DO {
		ttl |= 0x00008000
	}
	return RR{
		Name:  dname.Root,
		Type:  rrtype.TypeOPT,
		Class: o.UDPSize,
		TTL:   ttl,
		RData: rdata,
	}
}
