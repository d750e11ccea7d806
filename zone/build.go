package zone

import (
	"sort"

	"github.com/twotwotwo/sorts"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

// parallelSortThreshold is the node count above which canonical ordering
// uses sorts.Quicksort's parallel sort instead of a plain sort.Sort; below
// it, spinning up sort goroutines costs more than it saves.
const parallelSortThreshold = 512

// nodeSlice adapts []*Node to sort.Interface so it can be handed to either
// sort.Sort or sorts.Quicksort.
type nodeSlice []*Node

func (s nodeSlice) Len() int      { return len(s) }
func (s nodeSlice) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s nodeSlice) Less(i, j int) bool {
	return s[i].Owner.CanonicalKey() < s[j].Owner.CanonicalKey()
}

// TTLPolicy governs what happens when RRs within one RRSet are ingested
// with differing TTLs (spec.md §3 and §9's Open Question). Reject matches
// the spec's recommended default for primary (authoritative-load) zones;
// Coerce matches its recommended default for secondary (transfer-load)
// zones.
type TTLPolicy uint8

const (
	TTLReject TTLPolicy = iota
	TTLCoerce
)

// LoadOptions controls initial zone construction.
type LoadOptions struct {
	TTLPolicy TTLPolicy
}

// InputRR is one record as presented to zone construction or an update
// changeset, before it has been folded into a Node's RRSets.
type InputRR struct {
	Owner dname.Name
	Type  uint16
	Class uint16
	TTL   uint32
	RData []byte
}

// Load builds a brand-new Zone from a flat list of records, the shape a
// transfer-in (AXFR) or a configured initial zone content set arrives in.
func Load(apex dname.Name, records []InputRR, opts LoadOptions) (*Zone, error) {
	builder := newZoneBuilder(apex)
	for _, r := range records {
		if err := builder.addRecord(r, opts.TTLPolicy); err != nil {
			return nil, err
		}
	}
	return builder.finish()
}

type zoneBuilder struct {
	apex  dname.Name
	nodes map[string]*Node
}

func newZoneBuilder(apex dname.Name) *zoneBuilder {
	b := &zoneBuilder{apex: apex, nodes: map[string]*Node{}}
	apexNode := newEmptyNode(apex)
	apexNode.IsApex = true
	b.nodes[apex.CanonicalKey()] = apexNode
	return b
}

// ensureNode returns the node at owner, materializing it (and any missing
// ancestors up to the apex) as an empty non-terminal if absent.
func (b *zoneBuilder) ensureNode(owner dname.Name) *Node {
	key := owner.CanonicalKey()
	if n, ok := b.nodes[key]; ok {
		return n
	}
	n := newEmptyNode(owner)
	b.nodes[key] = n
	if !owner.Equal(b.apex) {
		if parent, ok := owner.StripLeftmostLabel(); ok {
			b.ensureNode(parent)
		}
	}
	return n
}

func (b *zoneBuilder) addRecord(r InputRR, policy TTLPolicy) error {
	n := b.ensureNode(r.Owner)
	set, ok := n.RRSets[r.Type]
	if !ok {
		set = &RRSet{Type: r.Type, Class: r.Class, TTL: r.TTL}
		n.RRSets[r.Type] = set
	} else if set.TTL != r.TTL {
		switch policy {
		case TTLCoerce:
			// keep set.TTL (first observed wins)
		default:
			return ErrNonUniformTTL
		}
	}
	set.RRs = append(set.RRs, RR{RData: append([]byte(nil), r.RData...)})
	return nil
}

// finish validates zone-level invariants, computes derived flags, and
// produces the final sorted/immutable Zone.
func (b *zoneBuilder) finish() (*Zone, error) {
	apexNode, ok := b.nodes[b.apex.CanonicalKey()]
	if !ok {
		return nil, ErrNoApexSOA
	}
	soa, ok := apexNode.RRSets[rrtype.TypeSOA]
	if !ok || len(soa.RRs) != 1 {
		return nil, ErrNoApexSOA
	}

	for _, n := range b.nodes {
		if _, hasCNAME := n.RRSets[rrtype.TypeCNAME]; hasCNAME && len(n.RRSets) > 1 {
			for t := range n.RRSets {
				if t != rrtype.TypeCNAME && t != rrtype.TypeRRSIG && t != rrtype.TypeNSEC && t != rrtype.TypeNSEC3 {
					return nil, ErrCNAMEConflict
				}
			}
		}
		if _, hasP := n.RRSets[rrtype.TypeNSEC3PARAM]; hasP && !n.Owner.Equal(b.apex) {
			return nil, ErrNSEC3ParamNotApex
		}
		n.recomputeFlags()
	}

	markNonAuthAndWildcards(b.nodes, b.apex)

	nodes := make([]*Node, 0, len(b.nodes))
	for _, n := range b.nodes {
		nodes = append(nodes, n)
	}
	if len(nodes) >= parallelSortThreshold {
		sorts.Quicksort(nodeSlice(nodes))
	} else {
		sort.Sort(nodeSlice(nodes))
	}

	byKey := make(map[string]*Node, len(nodes))
	for _, n := range nodes {
		byKey[n.Owner.CanonicalKey()] = n
	}

	z := &Zone{
		Apex:   b.apex,
		nodes:  nodes,
		byKey:  byKey,
		Serial: decodeSOASerial(soa.RRs[0].RData),
	}
	if _, hasParam := apexNode.RRSets[rrtype.TypeNSEC3PARAM]; hasParam {
		z.nsec3 = buildNSEC3Tree(z)
	}
	return z, nil
}

// markNonAuthAndWildcards walks every node, marking it non-authoritative
// if any proper ancestor is a delegation, and marking each ancestor
// has_wildcard_child when a "*"-leftmost-label child exists.
func markNonAuthAndWildcards(nodes map[string]*Node, apex dname.Name) {
	for _, n := range nodes {
		if n.Owner.IsWildcard() {
			if parent, ok := n.Owner.StripLeftmostLabel(); ok {
				if p, ok := nodes[parent.CanonicalKey()]; ok {
					p.HasWildcardChild = true
				}
			}
		}
	}
	for _, n := range nodes {
		if n.IsApex {
			continue
		}
		cur, ok := n.Owner.StripLeftmostLabel()
		for ok {
			if anc, found := nodes[cur.CanonicalKey()]; found {
				if anc.IsDelegation {
					n.IsNonAuth = true
					break
				}
				if anc.IsApex {
					break
				}
			}
			cur, ok = cur.StripLeftmostLabel()
		}
	}
}

// decodeSOASerial reads the 32-bit serial field out of normalized SOA
// rdata (mname, rname, serial, refresh, retry, expire, minimum).
func decodeSOASerial(rdata []byte) uint32 {
	pos := 0
	for i := 0; i < 2; i++ { // mname, rname
		n, next, err := dname.Parse(rdata, pos)
		if err != nil {
			return 0
		}
		_ = n
		pos = next
	}
	if pos+4 > len(rdata) {
		return 0
	}
	return uint32(rdata[pos])<<24 | uint32(rdata[pos+1])<<16 | uint32(rdata[pos+2])<<8 | uint32(rdata[pos+3])
}
