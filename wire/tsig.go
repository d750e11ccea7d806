package wire

import (
	"encoding/binary"
	"errors"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

var ErrTsigMalformed = errors.New("wire: malformed TSIG rdata")

// RawTSIG is the decoded rdata of a TSIG pseudo-RR, spec.md §4.2: "rdata
// carries algorithm name, time-signed(u48), fudge(u16), MAC length/MAC,
// original-id(u16), error(u16), other-length/other-data."
type RawTSIG struct {
	Name       dname.Name // key name (RR owner)
	Algorithm  dname.Name
	TimeSigned uint64 // 48-bit
	Fudge      uint16
	MAC        []byte
	OriginalID uint16
	Error      uint16
	OtherData  []byte
}

// DecodeTSIG interprets an already-parsed RR of type TSIG. Its RData is
// always self-contained opaque bytes by the time DecodeRR has returned it
// (TSIG has no entry in the rrtype descriptor table, so the generic rdata
// path copies it verbatim) so the algorithm name is parsed directly out of
// rr.RData with no dependency on the enclosing message buffer.
func DecodeTSIG(rr RR) (RawTSIG, error) {
	rdata := rr.RData
	algo, pos, err := dname.Parse(rdata, 0)
	if err != nil {
		return RawTSIG{}, err
	}
	if pos+10 > len(rdata) {
		return RawTSIG{}, ErrTsigMalformed
	}
	timeHi := uint64(binary.BigEndian.Uint16(rdata[pos : pos+2]))
	timeLo := uint64(binary.BigEndian.Uint32(rdata[pos+2 : pos+6]))
	timeSigned := timeHi<<32 | timeLo
	fudge := binary.BigEndian.Uint16(rdata[pos+6 : pos+8])
	macLen := int(binary.BigEndian.Uint16(rdata[pos+8 : pos+10]))
	pos += 10
	if pos+macLen+6 > len(rdata) {
		return RawTSIG{}, ErrTsigMalformed
	}
	mac := append([]byte{}, rdata[pos:pos+macLen]...)
	pos += macLen

	origID := binary.BigEndian.Uint16(rdata[pos : pos+2])
	tsigErr := binary.BigEndian.Uint16(rdata[pos+2 : pos+4])
	otherLen := int(binary.BigEndian.Uint16(rdata[pos+4 : pos+6]))
	pos += 6
	if pos+otherLen != len(rdata) {
		return RawTSIG{}, ErrTsigMalformed
	}
	other := append([]byte{}, rdata[pos:pos+otherLen]...)

	return RawTSIG{
		Name:       rr.Name,
		Algorithm:  algo,
		TimeSigned: timeSigned,
		Fudge:      fudge,
		MAC:        mac,
		OriginalID: origID,
		Error:      tsigErr,
		OtherData:  other,
	}, nil
}

// EncodeTSIG renders t as a full RR. The algorithm name in the rdata is
// always written uncompressed; whether the owner key name compresses is
// decided by the Compressor the caller passes to EncodeRR (AppendTSIG
// passes the message's own).
func EncodeTSIG(t RawTSIG) RR {
	var rdata []byte
	rdata = dname.AppendUncompressed(rdata, t.Algorithm)

	var tb [10]byte
	binary.BigEndian.PutUint16(tb[0:2], uint16(t.TimeSigned>>32))
	binary.BigEndian.PutUint32(tb[2:6], uint32(t.TimeSigned))
	binary.BigEndian.PutUint16(tb[6:8], t.Fudge)
	binary.BigEndian.PutUint16(tb[8:10], uint16(len(t.MAC)))
	rdata = append(rdata, tb[:]...)
	rdata = append(rdata, t.MAC...)

	var tb2 [6]byte
	binary.BigEndian.PutUint16(tb2[0:2], t.OriginalID)
	binary.BigEndian.PutUint16(tb2[2:4], t.Error)
	binary.BigEndian.PutUint16(tb2[4:6], uint16(len(t.OtherData)))
	rdata = append(rdata, tb2[:]...)
	rdata = append(rdata, t.OtherData...)

	return RR{
		Name:  t.Name,
		Type:  rrtype.TypeTSIG,
		Class: rrtype.ClassANY,
		TTL:   0,
		RData: rdata,
	}
}
