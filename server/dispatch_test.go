package server

import (
	"testing"

	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
)

func TestClassifyNormal(t *testing.T) {
	q := &wire.Question{QType: rrtype.TypeA, QClass: rrtype.ClassINET}
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, q); got != pathNormal {
		t.Fatalf("got %v, want pathNormal", got)
	}
}

func TestClassifyANYClass(t *testing.T) {
	q := &wire.Question{QType: rrtype.TypeA, QClass: rrtype.ClassANY}
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, q); got != pathNormal {
		t.Fatalf("got %v, want pathNormal", got)
	}
}

func TestClassifyChaos(t *testing.T) {
	q := &wire.Question{QType: rrtype.TypeTXT, QClass: rrtype.ClassCH}
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, q); got != pathChaos {
		t.Fatalf("got %v, want pathChaos", got)
	}
}

func TestClassifyAxfrIxfr(t *testing.T) {
	axfr := &wire.Question{QType: rrtype.TypeAXFR, QClass: rrtype.ClassINET}
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, axfr); got != pathAxfr {
		t.Fatalf("got %v, want pathAxfr", got)
	}
	ixfr := &wire.Question{QType: rrtype.TypeIXFR, QClass: rrtype.ClassINET}
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, ixfr); got != pathIxfr {
		t.Fatalf("got %v, want pathIxfr", got)
	}
}

func TestClassifyRefusedClass(t *testing.T) {
	q := &wire.Question{QType: rrtype.TypeA, QClass: rrtype.ClassNONE}
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, q); got != pathRefused {
		t.Fatalf("got %v, want pathRefused", got)
	}
}

func TestClassifyNotifyAndUpdate(t *testing.T) {
	if got := classify(wire.Header{Opcode: wire.OpcodeNotify}, nil); got != pathNotify {
		t.Fatalf("got %v, want pathNotify", got)
	}
	if got := classify(wire.Header{Opcode: wire.OpcodeUpdate}, nil); got != pathUpdate {
		t.Fatalf("got %v, want pathUpdate", got)
	}
}

func TestClassifyNoQuestionIsFormErr(t *testing.T) {
	if got := classify(wire.Header{Opcode: wire.OpcodeQuery}, nil); got != pathFormErr {
		t.Fatalf("got %v, want pathFormErr", got)
	}
}

func TestClassifyUnknownOpcodeNotImplemented(t *testing.T) {
	if got := classify(wire.Header{Opcode: 15}, nil); got != pathNotImplemented {
		t.Fatalf("got %v, want pathNotImplemented", got)
	}
}
