package server

import (
	"testing"

	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
)

func TestAnswerChaosVersion(t *testing.T) {
	p := &Processor{Identity: Identity{Version: "adns-1.0", ID: "ns1"}}
	b := wire.NewBuilder(wire.Header{QR: true}, 512, 0)
	rcode := p.answerChaos(b, versionServerName, rrtype.TypeTXT)
	if rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", rcode)
	}
	an, _, _ := b.Counts()
	if an != 1 {
		t.Fatalf("expected one answer RRSet, got %d", an)
	}
}

func TestAnswerChaosID(t *testing.T) {
	p := &Processor{Identity: Identity{Version: "adns-1.0", ID: "ns1"}}
	b := wire.NewBuilder(wire.Header{QR: true}, 512, 0)
	rcode := p.answerChaos(b, idServerName, rrtype.TypeTXT)
	if rcode != wire.RcodeNoError {
		t.Fatalf("got rcode %d, want NoError", rcode)
	}
}

func TestAnswerChaosUnknownNameRefused(t *testing.T) {
	p := &Processor{Identity: Identity{Version: "x", ID: "y"}}
	b := wire.NewBuilder(wire.Header{QR: true}, 512, 0)
	rcode := p.answerChaos(b, name(t, "hostname", "bind"), rrtype.TypeTXT)
	if rcode != wire.RcodeRefused {
		t.Fatalf("got rcode %d, want Refused", rcode)
	}
}

func TestAnswerChaosWrongTypeNotImplemented(t *testing.T) {
	p := &Processor{Identity: Identity{Version: "x", ID: "y"}}
	b := wire.NewBuilder(wire.Header{QR: true}, 512, 0)
	rcode := p.answerChaos(b, versionServerName, rrtype.TypeA)
	if rcode != wire.RcodeNotImp {
		t.Fatalf("got rcode %d, want NotImp", rcode)
	}
}

func TestAnswerChaosEmptyIdentityRefused(t *testing.T) {
	p := &Processor{}
	b := wire.NewBuilder(wire.Header{QR: true}, 512, 0)
	rcode := p.answerChaos(b, versionServerName, rrtype.TypeTXT)
	if rcode != wire.RcodeRefused {
		t.Fatalf("got rcode %d, want Refused for an unconfigured identity string", rcode)
	}
}
