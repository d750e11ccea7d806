package server

import (
	"sort"

	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

// xferStream is the flat, ordered RRSet queue backing a streamed AXFR or
// IXFR response, spec.md §4.4.4: "Represented internally as a flat,
// ordered sequence of RRSets to emit; Produce slices off however many
// whole RRSets fit in one packet."
type xferStream struct {
	queue   []wire.RRSet
	pos     int
	packets int
}

func (s *xferStream) done() bool {
	return s.pos >= len(s.queue)
}

// next fills b with as many queued RRSets as fit, advancing s.pos, and
// clears the spurious TC bit a full section would otherwise set.
func (s *xferStream) next(b *wire.Builder) {
	for s.pos < len(s.queue) {
		if !b.AddAnswer(s.queue[s.pos]) {
			break
		}
		s.pos++
	}
	b.SuppressTC()
	s.packets++
}

// buildAxfrStream lays out z's entire content per RFC 5936 §2.2: the apex
// SOA first, every node's RRSets in canonical order, and the same SOA
// again to close the transfer.
func buildAxfrStream(z *zone.Zone) []wire.RRSet {
	soa := apexSOA(z)
	queue := make([]wire.RRSet, 0, z.NodeCount()+2)
	queue = append(queue, soa)
	z.Iterate(func(n, _ *zone.Node) {
		for _, t := range sortedTypes(n.RRSets) {
			if t == rrtype.TypeSOA && n.Owner.Equal(z.Apex) {
				continue // already emitted as the leading record, and again below
			}
			queue = append(queue, rrSetToWire(n.Owner, n.RRSets[t]))
		}
	})
	queue = append(queue, soa)
	return queue
}

// buildIxfrStream lays out the incremental content of diffs per RFC 1995
// §4: the zone's current SOA, then for each retained version step the old
// SOA, the step's removed records, the new SOA, and the step's added
// records. Historical SOA rdata isn't itself retained (only the step's
// from/to serials are), so the bracketing SOAs are reconstructed from the
// zone's current SOA rdata with the serial field overwritten.
func buildIxfrStream(z *zone.Zone, diffs []zone.DiffSequence) []wire.RRSet {
	apex := z.ApexNode()
	soaSet, ok := apex.RRSets[rrtype.TypeSOA]
	if !ok || len(soaSet.RRs) == 0 {
		return nil
	}
	rdata := soaSet.RRs[0].RData
	soaAt := func(serial uint32) wire.RRSet {
		return wire.RRSet{{
			Name: z.Apex, Type: rrtype.TypeSOA, Class: rrtype.ClassINET, TTL: soaSet.TTL,
			RData: zone.SOAWithSerial(rdata, serial),
		}}
	}

	queue := []wire.RRSet{soaAt(z.Serial)}
	for _, d := range diffs {
		queue = append(queue, soaAt(d.FromSerial))
		for _, rr := range d.Removed {
			queue = append(queue, inputRRSet(rr))
		}
		queue = append(queue, soaAt(d.ToSerial))
		for _, rr := range d.Added {
			queue = append(queue, inputRRSet(rr))
		}
	}
	return queue
}

func inputRRSet(rr zone.InputRR) wire.RRSet {
	return wire.RRSet{{Name: rr.Owner, Type: rr.Type, Class: rr.Class, TTL: rr.TTL, RData: rr.RData}}
}

func sortedTypes(sets map[uint16]*zone.RRSet) []uint16 {
	types := make([]uint16, 0, len(sets))
	for t := range sets {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ixfrRequestSerial extracts the client's current serial from an IXFR
// query's AUTHORITY section, spec.md §4.4.4: "the querying resolver's
// current serial, carried as an SOA record in the AUTHORITY section."
func ixfrRequestSerial(authority []wire.RR) (uint32, bool) {
	for _, rr := range authority {
		if rr.Type == rrtype.TypeSOA {
			return zone.SerialOf(rr.RData), true
		}
	}
	return 0, false
}
