package server

import (
	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

// checkPrerequisites walks the UPDATE packet's ANSWER section against the
// pre-update zone, spec.md §4.4.3's prerequisite table. It returns the
// RCODE to respond with; RcodeNoError means every prerequisite held.
func checkPrerequisites(z *zone.Zone, prereqs []wire.RR) uint8 {
	for _, rr := range prereqs {
		res := z.Lookup(rr.Name)

		switch {
		case rr.Class == rrtype.ClassANY && rr.Type == rrtype.TypeANY:
			if res.Node == nil || res.Node.IsEmpty() {
				return wire.RcodeNXDomain
			}
		case rr.Class == rrtype.ClassANY:
			if res.Node == nil || !res.Node.HasType(rr.Type) {
				return wire.RcodeNXRRSet
			}
		case rr.Class == rrtype.ClassNONE && rr.Type == rrtype.TypeANY:
			if res.Node != nil && !res.Node.IsEmpty() {
				return wire.RcodeYXDomain
			}
		case rr.Class == rrtype.ClassNONE:
			if res.Node != nil && res.Node.HasType(rr.Type) {
				return wire.RcodeYXRRSet
			}
		default:
			// Zone class with non-empty data: an exact RRSet with this
			// data must exist.
			if res.Node == nil {
				return wire.RcodeNXRRSet
			}
			set, ok := res.Node.RRSets[rr.Type]
			if !ok || !set.Contains(rr.RData) {
				return wire.RcodeNXRRSet
			}
		}
	}
	return wire.RcodeNoError
}

// buildChangeset translates the UPDATE packet's AUTHORITY section into a
// zone.Change list, applying spec.md §4.4.3's update-section table and its
// forbidden/silently-ignored special cases. zoneApex is needed to detect
// the apex-NS-removal-would-empty-the-RRSet case, which is silently
// ignored rather than passed through to Apply (which would otherwise
// reject the whole transaction).
func buildChangeset(z *zone.Zone, zoneApex dname.Name, updates []wire.RR) ([]zone.Change, uint8) {
	var changes []zone.Change

	for _, rr := range updates {
		if rrtype.IsForbiddenInUpdate(rr.Type) {
			return nil, wire.RcodeRefused
		}

		switch rr.Class {
		case rrtype.ClassINET, rrtype.ClassCH:
			if rr.Type == rrtype.TypeSOA {
				// Only the singleton-replace path is legal; a plain SOA
				// add with serial <= current is silently dropped.
				res := z.Lookup(rr.Name)
				if res.Node != nil {
					if soa, ok := res.Node.RRSets[rrtype.TypeSOA]; ok && len(soa.RRs) == 1 {
						if !zone.SerialGT(zone.SerialOf(rr.RData), zone.SerialOf(soa.RRs[0].RData)) {
							continue
						}
					}
				}
			}
			changes = append(changes, zone.Change{
				Add: true, Owner: rr.Name, Type: rr.Type, Class: rr.Class, TTL: rr.TTL, RData: rr.RData,
			})

		case rrtype.ClassANY:
			if rr.Type == rrtype.TypeANY {
				changes = append(changes, zone.Change{Owner: rr.Name, DeleteName: true})
				continue
			}
			if rr.Type == rrtype.TypeNS && rr.Name.Equal(zoneApex) {
				// Silently ignored: deleting the whole apex NS RRSet always
				// empties it (spec.md §4.4.3).
				continue
			}
			changes = append(changes, zone.Change{Owner: rr.Name, Type: rr.Type, Class: rrtype.ClassINET})

		case rrtype.ClassNONE:
			if rr.Type == rrtype.TypeNS && rr.Name.Equal(zoneApex) {
				// Silently ignored: removing the only apex NS record would
				// empty the RRSet (spec.md §4.4.3).
				if res := z.Lookup(zoneApex); res.Node != nil {
					if ns, ok := res.Node.RRSets[rrtype.TypeNS]; ok && len(ns.RRs) <= 1 && ns.Contains(rr.RData) {
						continue
					}
				}
			}
			changes = append(changes, zone.Change{
				Owner: rr.Name, Type: rr.Type, Class: rrtype.ClassINET, RData: rr.RData,
			})

		default:
			return nil, wire.RcodeFormErr
		}
	}
	return changes, wire.RcodeNoError
}
