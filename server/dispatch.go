package server

import (
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
)

// classify implements spec.md §4.4.1's dispatch table.
func classify(h wire.Header, q *wire.Question) path {
	switch h.Opcode {
	case wire.OpcodeQuery:
		if q == nil {
			return pathFormErr
		}
		switch q.QType {
		case rrtype.TypeAXFR:
			return pathAxfr
		case rrtype.TypeIXFR:
			return pathIxfr
		}
		switch q.QClass {
		case rrtype.ClassCH:
			return pathChaos
		case rrtype.ClassINET, rrtype.ClassANY:
			return pathNormal
		default:
			return pathRefused
		}
	case wire.OpcodeNotify:
		return pathNotify
	case wire.OpcodeUpdate:
		return pathUpdate
	default:
		return pathNotImplemented
	}
}
