package zone

import (
	"errors"
	"sort"

	"github.com/twotwotwo/sorts"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

var (
	ErrSOARemoval         = errors.New("zone: update would remove the apex SOA")
	ErrApexNSEmptied      = errors.New("zone: update would empty the apex NS RRSet")
	ErrSerialNotAdvancing = errors.New("zone: explicit SOA serial does not advance the zone's serial")
)

// Change is one (add, RR) or (remove, RR) changeset item, spec.md §4.3:
// "a changeset — a list of (add, RR) and (remove, RR) items". Zone-level
// structural invariants (§4.3) are enforced here; the UPDATE-opcode
// policy decisions of spec.md §4.4.3 — forbidden types, the apex-NS
// silent-ignore rule, the serial-not-advancing silent-drop rule — are the
// query processor's responsibility and are expected to have already
// filtered the Change list before it reaches Apply.
type Change struct {
	Add   bool
	Owner dname.Name
	Type  uint16
	Class uint16
	TTL   uint32

	// RData is the record to add or remove. For a remove with RData ==
	// nil, the entire RRSet of Type at Owner is deleted (ANY/T). For a
	// remove with DeleteName set, every RRSet at Owner is deleted
	// (ANY/ANY), RData and Type are then ignored.
	RData      []byte
	DeleteName bool
}

// Apply produces a new Zone from old by applying changeset, sharing every
// node untouched by the changeset with old (spec.md §3: "structural
// sharing of unchanged nodes... each modified path is cloned"). It
// returns the DiffSequence recording exactly what changed, for IXFR.
func Apply(old *Zone, changeset []Change) (*Zone, DiffSequence, error) {
	nodes := make(map[string]*Node, len(old.byKey))
	for k, v := range old.byKey {
		nodes[k] = v
	}
	cloned := map[string]bool{}

	var getOrClone func(owner dname.Name) *Node
	getOrClone = func(owner dname.Name) *Node {
		key := owner.CanonicalKey()
		n, ok := nodes[key]
		if !ok {
			n = newEmptyNode(owner)
			nodes[key] = n
			cloned[key] = true
			if !owner.Equal(old.Apex) {
				if parent, ok2 := owner.StripLeftmostLabel(); ok2 {
					getOrClone(parent)
				}
			}
			return n
		}
		if !cloned[key] {
			n = n.clone()
			nodes[key] = n
			cloned[key] = true
		}
		return n
	}

	diff := DiffSequence{FromSerial: old.Serial}
	nonSOAEffect := false
	var explicitSOA *InputRR

	for _, ch := range changeset {
		n := getOrClone(ch.Owner)

		if ch.Add {
			set, exists := n.RRSets[ch.Type]
			if !exists {
				set = &RRSet{Type: ch.Type, Class: ch.Class, TTL: ch.TTL}
			} else {
				if set.TTL != ch.TTL {
					return nil, DiffSequence{}, ErrNonUniformTTL
				}
				set = set.Clone()
			}
			rdata := append([]byte(nil), ch.RData...)
			if rrtype.IsSingleton(ch.Type) {
				set.RRs = []RR{{RData: rdata}}
			} else if !set.Contains(rdata) {
				set.RRs = append(set.RRs, RR{RData: rdata})
			}
			n.RRSets[ch.Type] = set
			n.recomputeFlags()
			diff.Added = append(diff.Added, InputRR{Owner: ch.Owner, Type: ch.Type, Class: ch.Class, TTL: ch.TTL, RData: rdata})
			if ch.Type == rrtype.TypeSOA {
				rr := InputRR{Owner: ch.Owner, Type: ch.Type, Class: ch.Class, TTL: ch.TTL, RData: rdata}
				explicitSOA = &rr
			} else {
				nonSOAEffect = true
			}
			continue
		}

		// Remove.
		switch {
		case ch.DeleteName:
			for t, set := range n.RRSets {
				for _, rr := range set.RRs {
					diff.Removed = append(diff.Removed, InputRR{Owner: ch.Owner, Type: t, Class: set.Class, TTL: set.TTL, RData: rr.RData})
				}
			}
			n.RRSets = map[uint16]*RRSet{}
			n.recomputeFlags()
			nonSOAEffect = true
		case ch.RData == nil:
			if set, exists := n.RRSets[ch.Type]; exists {
				for _, rr := range set.RRs {
					diff.Removed = append(diff.Removed, InputRR{Owner: ch.Owner, Type: ch.Type, Class: set.Class, TTL: set.TTL, RData: rr.RData})
				}
				delete(n.RRSets, ch.Type)
				n.recomputeFlags()
				if ch.Type != rrtype.TypeSOA {
					nonSOAEffect = true
				}
			}
		default:
			if set, exists := n.RRSets[ch.Type]; exists {
				newSet, found := set.withoutRData(ch.RData)
				if found {
					diff.Removed = append(diff.Removed, InputRR{Owner: ch.Owner, Type: ch.Type, Class: set.Class, TTL: set.TTL, RData: ch.RData})
					if len(newSet.RRs) == 0 {
						delete(n.RRSets, ch.Type)
					} else {
						n.RRSets[ch.Type] = newSet
					}
					n.recomputeFlags()
					nonSOAEffect = true
				}
			}
		}
	}

	apex := getOrClone(old.Apex)
	soaSet, hasSOA := apex.RRSets[rrtype.TypeSOA]
	if !hasSOA || len(soaSet.RRs) != 1 {
		return nil, DiffSequence{}, ErrSOARemoval
	}
	if nsSet, hasNS := apex.RRSets[rrtype.TypeNS]; !hasNS || len(nsSet.RRs) == 0 {
		return nil, DiffSequence{}, ErrApexNSEmptied
	}

	newSerial := old.Serial
	if explicitSOA != nil {
		newSerial = decodeSOASerial(explicitSOA.RData)
		if !SerialGT(newSerial, old.Serial) {
			return nil, DiffSequence{}, ErrSerialNotAdvancing
		}
	} else if nonSOAEffect {
		soaSet = soaSet.Clone()
		soaSet.RRs[0] = RR{RData: bumpSerial(soaSet.RRs[0].RData)}
		apex.RRSets[rrtype.TypeSOA] = soaSet
		newSerial = old.Serial + 1
	}
	diff.ToSerial = newSerial

	sorted := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		sorted = append(sorted, n)
	}
	if len(sorted) >= parallelSortThreshold {
		sorts.Quicksort(nodeSlice(sorted))
	} else {
		sort.Sort(nodeSlice(sorted))
	}
	byKey := make(map[string]*Node, len(sorted))
	for _, n := range sorted {
		byKey[n.Owner.CanonicalKey()] = n
	}

	nz := &Zone{
		Apex:   old.Apex,
		nodes:  sorted,
		byKey:  byKey,
		Signed: old.Signed,
		Serial: newSerial,
		ixfr:   old.ixfr.appended(diff),
	}
	if _, hasParam := apex.RRSets[rrtype.TypeNSEC3PARAM]; hasParam {
		nz.nsec3 = buildNSEC3Tree(nz)
	}
	return nz, diff, nil
}

// bumpSerial overwrites the serial field of normalized SOA rdata with
// old+1 (mod 2^32), the auto-increment applied when a changeset has a
// non-SOA effect and carries no explicit new SOA.
func bumpSerial(rdata []byte) []byte {
	out := append([]byte(nil), rdata...)
	pos := 0
	for i := 0; i < 2; i++ {
		_, next, err := dname.Parse(out, pos)
		if err != nil {
			return out
		}
		pos = next
	}
	if pos+4 > len(out) {
		return out
	}
	serial := uint32(out[pos])<<24 | uint32(out[pos+1])<<16 | uint32(out[pos+2])<<8 | uint32(out[pos+3])
	serial++
	out[pos] = byte(serial >> 24)
	out[pos+1] = byte(serial >> 16)
	out[pos+2] = byte(serial >> 8)
	out[pos+3] = byte(serial)
	return out
}
