package server

import (
	"testing"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

func TestCheckPrerequisitesNameMustExist(t *testing.T) {
	z := testZone(t, 1)
	www := name(t, "www", "example", "com")
	nowhere := name(t, "nowhere", "example", "com")

	if rcode := checkPrerequisites(z, []wire.RR{{Name: www, Type: rrtype.TypeANY, Class: rrtype.ClassANY}}); rcode != wire.RcodeNoError {
		t.Fatalf("expected existing name to satisfy ANY/ANY, got rcode %d", rcode)
	}
	if rcode := checkPrerequisites(z, []wire.RR{{Name: nowhere, Type: rrtype.TypeANY, Class: rrtype.ClassANY}}); rcode != wire.RcodeNXDomain {
		t.Fatalf("expected NXDomain for an absent name, got rcode %d", rcode)
	}
}

func TestCheckPrerequisitesRRSetMustExist(t *testing.T) {
	z := testZone(t, 1)
	www := name(t, "www", "example", "com")

	if rcode := checkPrerequisites(z, []wire.RR{{Name: www, Type: rrtype.TypeA, Class: rrtype.ClassANY}}); rcode != wire.RcodeNoError {
		t.Fatalf("expected existing A RRSet to satisfy the prerequisite, got rcode %d", rcode)
	}
	if rcode := checkPrerequisites(z, []wire.RR{{Name: www, Type: rrtype.TypeMX, Class: rrtype.ClassANY}}); rcode != wire.RcodeNXRRSet {
		t.Fatalf("expected NXRRSet for an absent type, got rcode %d", rcode)
	}
}

func TestCheckPrerequisitesNameMustNotExist(t *testing.T) {
	z := testZone(t, 1)
	www := name(t, "www", "example", "com")
	nowhere := name(t, "nowhere", "example", "com")

	if rcode := checkPrerequisites(z, []wire.RR{{Name: nowhere, Type: rrtype.TypeANY, Class: rrtype.ClassNONE}}); rcode != wire.RcodeNoError {
		t.Fatalf("expected an absent name to satisfy NONE/ANY, got rcode %d", rcode)
	}
	if rcode := checkPrerequisites(z, []wire.RR{{Name: www, Type: rrtype.TypeANY, Class: rrtype.ClassNONE}}); rcode != wire.RcodeYXDomain {
		t.Fatalf("expected YXDomain for an existing name, got rcode %d", rcode)
	}
}

func TestCheckPrerequisitesExactRDataMatch(t *testing.T) {
	z := testZone(t, 1)
	www := name(t, "www", "example", "com")

	ok := wire.RR{Name: www, Type: rrtype.TypeA, Class: rrtype.ClassINET, RData: []byte{192, 0, 2, 2}}
	if rcode := checkPrerequisites(z, []wire.RR{ok}); rcode != wire.RcodeNoError {
		t.Fatalf("expected matching rdata to satisfy the prerequisite, got rcode %d", rcode)
	}

	mismatch := wire.RR{Name: www, Type: rrtype.TypeA, Class: rrtype.ClassINET, RData: []byte{192, 0, 2, 99}}
	if rcode := checkPrerequisites(z, []wire.RR{mismatch}); rcode != wire.RcodeNXRRSet {
		t.Fatalf("expected a mismatched rdata prerequisite to fail, got rcode %d", rcode)
	}
}

func TestBuildChangesetForbidsZoneStructureTypes(t *testing.T) {
	z := testZone(t, 1)
	apex := name(t, "example", "com")
	updates := []wire.RR{{Name: apex, Type: rrtype.TypeNSEC3, Class: rrtype.ClassINET, RData: []byte{0, 0, 0, 0, 0}}}
	_, rcode := buildChangeset(z, apex, updates)
	if rcode != wire.RcodeRefused {
		t.Fatalf("got rcode %d, want Refused for a forbidden update type", rcode)
	}
}

func TestBuildChangesetAddAndDelete(t *testing.T) {
	z := testZone(t, 1)
	apex := name(t, "example", "com")
	newName := name(t, "new", "example", "com")
	www := name(t, "www", "example", "com")

	updates := []wire.RR{
		{Name: newName, Type: rrtype.TypeA, Class: rrtype.ClassINET, TTL: 300, RData: []byte{192, 0, 2, 50}},
		{Name: www, Type: rrtype.TypeANY, Class: rrtype.ClassANY},
	}
	changes, rcode := buildChangeset(z, apex, updates)
	if rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", rcode)
	}
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if !changes[0].Add || !changes[0].Owner.Equal(newName) {
		t.Fatalf("expected first change to add %v, got %+v", newName, changes[0])
	}
	if !changes[1].DeleteName || !changes[1].Owner.Equal(www) {
		t.Fatalf("expected second change to delete the name %v, got %+v", www, changes[1])
	}
}

func TestBuildChangesetSilentlyIgnoresApexNSEmptying(t *testing.T) {
	z := testZone(t, 1)
	apex := name(t, "example", "com")
	ns1 := name(t, "ns1", "example", "com")

	updates := []wire.RR{
		{Name: apex, Type: rrtype.TypeNS, Class: rrtype.ClassNONE, RData: dname.AppendUncompressed(nil, ns1)},
	}
	changes, rcode := buildChangeset(z, apex, updates)
	if rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", rcode)
	}
	if len(changes) != 0 {
		t.Fatalf("expected the apex-NS-emptying deletion to be silently dropped, got %+v", changes)
	}
}

func TestBuildChangesetSilentlyDropsNonAdvancingSOA(t *testing.T) {
	z := testZone(t, 5)
	apex := name(t, "example", "com")

	updates := []wire.RR{
		{Name: apex, Type: rrtype.TypeSOA, Class: rrtype.ClassINET, TTL: 3600, RData: soaRData(t, 3)},
	}
	changes, rcode := buildChangeset(z, apex, updates)
	if rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", rcode)
	}
	if len(changes) != 0 {
		t.Fatalf("expected the non-advancing SOA update to be silently dropped, got %+v", changes)
	}
}

func TestApplyUpdateEndToEnd(t *testing.T) {
	db := zone.NewDatabase()
	z := testZone(t, 1)
	db.Publish(z)

	p := &Processor{DB: db}
	tr := NewTransaction(p, stubAddr("192.0.2.200:12345"), true)

	apex := name(t, "example", "com")
	newName := name(t, "new", "example", "com")
	m := &wire.Message{
		Header:    wire.Header{Opcode: wire.OpcodeUpdate},
		Question:  &wire.Question{Name: apex, QType: rrtype.TypeSOA, QClass: rrtype.ClassINET},
		Authority: []wire.RR{{Name: newName, Type: rrtype.TypeA, Class: rrtype.ClassINET, TTL: 300, RData: []byte{192, 0, 2, 77}}},
	}
	rcode := tr.applyUpdate(z, m)
	if rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", rcode)
	}

	snap := db.Snapshot()
	nz, ok := zone.Lookup(snap, newName)
	if !ok {
		t.Fatalf("expected the published zone to contain the new record's zone")
	}
	if res := nz.Lookup(newName); res.Node == nil || !res.Node.HasType(rrtype.TypeA) {
		t.Fatalf("expected %v to carry a new A record after the update", newName)
	}
}
