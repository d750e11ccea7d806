package server

import (
	"testing"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

// Shared helpers for this package's tests, following the plain-testing.T
// style of zone/zone_test.go.

func name(t *testing.T, s ...string) dname.Name {
	t.Helper()
	n, err := dname.FromLabels(s)
	if err != nil {
		t.Fatalf("FromLabels(%v): %v", s, err)
	}
	return n
}

func soaRData(t *testing.T, serial uint32) []byte {
	t.Helper()
	mname := name(t, "ns1", "example", "com")
	rname := name(t, "hostmaster", "example", "com")
	var rdata []byte
	rdata = dname.AppendUncompressed(rdata, mname)
	rdata = dname.AppendUncompressed(rdata, rname)
	var b [20]byte
	b[0], b[1], b[2], b[3] = byte(serial>>24), byte(serial>>16), byte(serial>>8), byte(serial)
	rdata = append(rdata, b[:]...)
	return rdata
}

// baseZoneRecords returns the flat record set testZone builds from: apex
// NS/SOA, an A record at www, a delegation at sub, and a wildcard at
// *.example.com.
func baseZoneRecords(t *testing.T, serial uint32) []zone.InputRR {
	t.Helper()
	apex := name(t, "example", "com")
	ns1 := name(t, "ns1", "example", "com")
	www := name(t, "www", "example", "com")
	sub := name(t, "sub", "example", "com")
	nsSub := name(t, "ns1", "sub", "example", "com")
	wild := name(t, "*", "example", "com")

	return []zone.InputRR{
		{Owner: apex, Type: rrtype.TypeSOA, Class: rrtype.ClassINET, TTL: 3600, RData: soaRData(t, serial)},
		{Owner: apex, Type: rrtype.TypeNS, Class: rrtype.ClassINET, TTL: 3600, RData: dname.AppendUncompressed(nil, ns1)},
		{Owner: ns1, Type: rrtype.TypeA, Class: rrtype.ClassINET, TTL: 3600, RData: []byte{192, 0, 2, 1}},
		{Owner: www, Type: rrtype.TypeA, Class: rrtype.ClassINET, TTL: 300, RData: []byte{192, 0, 2, 2}},
		{Owner: sub, Type: rrtype.TypeNS, Class: rrtype.ClassINET, TTL: 3600, RData: dname.AppendUncompressed(nil, nsSub)},
		{Owner: nsSub, Type: rrtype.TypeA, Class: rrtype.ClassINET, TTL: 3600, RData: []byte{192, 0, 2, 3}},
		{Owner: wild, Type: rrtype.TypeA, Class: rrtype.ClassINET, TTL: 300, RData: []byte{192, 0, 2, 9}},
	}
}

// testZone builds a small signed-free zone from baseZoneRecords.
func testZone(t *testing.T, serial uint32) *zone.Zone {
	t.Helper()
	apex := name(t, "example", "com")
	z, err := zone.Load(apex, baseZoneRecords(t, serial), zone.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return z
}

// testZoneWithExtra builds the same base zone plus extra records, for
// tests needing a CNAME chain or other shapes the base set doesn't cover.
func testZoneWithExtra(t *testing.T, serial uint32, extra ...zone.InputRR) *zone.Zone {
	t.Helper()
	apex := name(t, "example", "com")
	records := append(baseZoneRecords(t, serial), extra...)
	z, err := zone.Load(apex, records, zone.LoadOptions{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return z
}

// rawQuery builds a minimal raw request message: header plus one question.
func rawQuery(id uint16, opcode uint8, qname dname.Name, qtype, qclass uint16) []byte {
	h := wire.Header{ID: id, Opcode: opcode, RD: true, QDCount: 1}
	buf := h.Encode(nil)
	q := wire.Question{Name: qname, QType: qtype, QClass: qclass}
	buf = wire.EncodeQuestion(buf, q, nil)
	return buf
}

type stubAddr string

func (a stubAddr) Network() string { return "udp" }
func (a stubAddr) String() string  { return string(a) }
