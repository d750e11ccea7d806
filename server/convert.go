package server

import (
	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

// rrSetToWire converts one of a Node's zone.RRSets (identified only by
// type/class/ttl/rdata) into the owner-qualified wire.RR form a Builder
// can emit.
func rrSetToWire(owner dname.Name, rs *zone.RRSet) wire.RRSet {
	out := make(wire.RRSet, len(rs.RRs))
	for i, rr := range rs.RRs {
		out[i] = wire.RR{Name: owner, Type: rs.Type, Class: rs.Class, TTL: rs.TTL, RData: rr.RData}
	}
	return out
}

// negotiatedPayload implements spec.md §4.4.2's response-size cap:
// min(client_edns_payload, server_max_payload, 512 if no EDNS).
func negotiatedPayload(opt *wire.OPT, serverMax int) int {
	if opt == nil {
		return wire.DefaultUDPSize
	}
	size := int(opt.UDPSize)
	if size == 0 || size > serverMax {
		size = serverMax
	}
	if size < wire.DefaultUDPSize {
		size = wire.DefaultUDPSize
	}
	return size
}

// additionalGlue resolves the in-zone address records for any
// additional-triggering name appearing in rrs' rdata (spec.md §4.4.2 step
// 4), deduplicating by owner so the same NS target isn't looked up twice.
func additionalGlue(z *zone.Zone, rrs wire.RRSet) wire.RRSet {
	seen := map[string]bool{}
	var out wire.RRSet
	for _, rr := range rrs {
		desc, ok := rrtype.Lookup(rr.Type)
		if !ok || !desc.AdditionalTriggering {
			continue
		}
		// Skip the fixed-size integer fields (MX preference, SRV
		// priority/weight/port) that precede the name.
		off := 0
		for _, f := range desc.Fields {
			if f.Kind == rrtype.FieldUint8 {
				off++
			} else if f.Kind == rrtype.FieldUint16 {
				off += 2
			} else if f.Kind == rrtype.FieldUint32 {
				off += 4
			} else {
				break
			}
		}
		target, _, err := dname.Parse(rr.RData, off)
		if err != nil {
			continue
		}
		key := target.CanonicalKey()
		if seen[key] {
			continue
		}
		seen[key] = true

		res := z.Lookup(target)
		if res.Node == nil {
			continue
		}
		if set, ok := res.Node.RRSets[rrtype.TypeA]; ok {
			out = append(out, rrSetToWire(target, set)...)
		}
		if set, ok := res.Node.RRSets[rrtype.TypeAAAA]; ok {
			out = append(out, rrSetToWire(target, set)...)
		}
	}
	return out
}

func firstNameField(rdata []byte) (dname.Name, bool) {
	n, _, err := dname.Parse(rdata, 0)
	if err != nil {
		return dname.Name{}, false
	}
	return n, true
}
