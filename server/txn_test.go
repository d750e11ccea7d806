package server

import (
	"net/netip"
	"testing"

	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

func newTestProcessor(t *testing.T, z *zone.Zone) *Processor {
	t.Helper()
	db := zone.NewDatabase()
	db.Publish(z)
	p := NewProcessor(db, nil, nil)
	p.Identity = Identity{Version: "adns-test", ID: "ns-test"}
	return p
}

func runTransaction(t *testing.T, p *Processor, src string, raw []byte) (*wire.Message, []byte) {
	t.Helper()
	tr := NewTransaction(p, stubAddr(src), true)
	tr.Begin()
	if _, err := tr.Consume(raw); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	resp, result, err := tr.Produce(4096)
	if err != nil {
		t.Fatalf("Produce: %v", err)
	}
	if result != ProduceDone {
		t.Fatalf("got ProduceResult %v, want ProduceDone", result)
	}
	tr.Finish()
	if tr.State() != Done {
		t.Fatalf("got state %v, want Done", tr.State())
	}
	m, err := wire.ParseMessage(resp)
	if err != nil {
		t.Fatalf("ParseMessage(response): %v", err)
	}
	return m, resp
}

func TestTransactionNormalQuery(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	www := name(t, "www", "example", "com")

	raw := rawQuery(0xBEEF, wire.OpcodeQuery, www, rrtype.TypeA, rrtype.ClassINET)
	m, _ := runTransaction(t, p, "198.51.100.10:5353", raw)

	if !m.Header.QR {
		t.Fatalf("expected QR set in the response")
	}
	if m.Header.Rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", m.Header.Rcode)
	}
	if m.Header.ID != 0xBEEF {
		t.Fatalf("got id %x, want %x (echoed from request)", m.Header.ID, 0xBEEF)
	}
	if len(m.Answer) != 1 {
		t.Fatalf("got %d answer RRs, want 1", len(m.Answer))
	}
}

func TestTransactionUnknownZoneRefused(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	elsewhere := name(t, "www", "elsewhere", "net")

	raw := rawQuery(1, wire.OpcodeQuery, elsewhere, rrtype.TypeA, rrtype.ClassINET)
	m, _ := runTransaction(t, p, "198.51.100.10:5353", raw)
	if m.Header.Rcode != wire.RcodeRefused {
		t.Fatalf("got rcode %d, want Refused", m.Header.Rcode)
	}
}

func TestTransactionUnimplementedOpcode(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	www := name(t, "www", "example", "com")

	raw := rawQuery(2, 15, www, rrtype.TypeA, rrtype.ClassINET)
	m, _ := runTransaction(t, p, "198.51.100.10:5353", raw)
	if m.Header.Rcode != wire.RcodeNotImp {
		t.Fatalf("got rcode %d, want NotImp", m.Header.Rcode)
	}
}

func TestTransactionChaosQuery(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)

	raw := rawQuery(3, wire.OpcodeQuery, versionServerName, rrtype.TypeTXT, rrtype.ClassCH)
	m, _ := runTransaction(t, p, "198.51.100.10:5353", raw)
	if m.Header.Rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", m.Header.Rcode)
	}
	if len(m.Answer) != 1 || m.Answer[0].Type != rrtype.TypeTXT {
		t.Fatalf("expected a single TXT answer, got %+v", m.Answer)
	}
}

func TestTransactionMalformedMessageFormErr(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)

	// A header claiming a question that was never appended.
	h := wire.Header{ID: 9, Opcode: wire.OpcodeQuery, QDCount: 1}
	raw := h.Encode(nil)

	m, _ := runTransaction(t, p, "198.51.100.10:5353", raw)
	if m.Header.Rcode != wire.RcodeFormErr {
		t.Fatalf("got rcode %d, want FormErr", m.Header.Rcode)
	}
}

func TestTransactionNotifyRequiresACL(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	apex := name(t, "example", "com")

	raw := rawQuery(4, wire.OpcodeNotify, apex, rrtype.TypeSOA, rrtype.ClassINET)
	m, _ := runTransaction(t, p, "198.51.100.10:5353", raw)
	if m.Header.Rcode != wire.RcodeNotAuth {
		t.Fatalf("got rcode %d, want NotAuth (no NotifyACL configured)", m.Header.Rcode)
	}

	p.Policies[apex.CanonicalKey()] = &ZonePolicy{
		NotifyACL: ACL{{Net: netip.MustParsePrefix("198.51.100.0/24")}},
	}
	m2, _ := runTransaction(t, p, "198.51.100.10:5353", raw)
	if m2.Header.Rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError once the source is allow-listed", m2.Header.Rcode)
	}
}

func TestTransactionAxfrStreamsEntireZone(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	apex := name(t, "example", "com")
	p.Policies[apex.CanonicalKey()] = &ZonePolicy{
		XferACL: ACL{{Net: netip.MustParsePrefix("203.0.113.0/24")}},
	}

	raw := rawQuery(5, wire.OpcodeQuery, apex, rrtype.TypeAXFR, rrtype.ClassINET)
	tr := NewTransaction(p, stubAddr("203.0.113.7:53124"), false)
	tr.Begin()
	if _, err := tr.Consume(raw); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if tr.State() != Producing {
		t.Fatalf("got state %v, want Producing", tr.State())
	}

	var answerRRs int
	for {
		resp, result, err := tr.Produce(65535)
		if err != nil {
			t.Fatalf("Produce: %v", err)
		}
		m, err := wire.ParseMessage(resp)
		if err != nil {
			t.Fatalf("ParseMessage: %v", err)
		}
		if m.Header.TC {
			t.Fatalf("a streamed transfer packet must never set TC")
		}
		answerRRs += len(m.Answer)
		if result == ProduceDone {
			break
		}
	}
	// apex SOA, apex NS, ns1 A, www A, sub NS, ns1.sub A, wildcard A, closing SOA.
	if answerRRs != 8 {
		t.Fatalf("got %d total answer RRs across the transfer, want 8", answerRRs)
	}
	tr.Finish()
}

func TestTransactionAxfrDeniedWithoutACL(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	apex := name(t, "example", "com")

	raw := rawQuery(6, wire.OpcodeQuery, apex, rrtype.TypeAXFR, rrtype.ClassINET)
	m, _ := runTransaction(t, p, "203.0.113.7:53124", raw)
	if m.Header.Rcode != wire.RcodeNotAuth {
		t.Fatalf("got rcode %d, want NotAuth", m.Header.Rcode)
	}
}

func TestTransactionReset(t *testing.T) {
	z := testZone(t, 1)
	p := newTestProcessor(t, z)
	tr := NewTransaction(p, stubAddr("198.51.100.10:5353"), true)
	tr.Begin()
	www := name(t, "www", "example", "com")
	raw := rawQuery(7, wire.OpcodeQuery, www, rrtype.TypeA, rrtype.ClassINET)
	if _, err := tr.Consume(raw); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	tr.Reset()
	if tr.State() != AwaitQuery {
		t.Fatalf("got state %v after Reset, want AwaitQuery", tr.State())
	}
}
