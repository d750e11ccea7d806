package zone

import (
	"errors"
	"sort"

	"github.com/sandpiper-dns/adns/dname"
)

var (
	ErrNoApexSOA    = errors.New("zone: apex must carry exactly one SOA")
	ErrEmptyApexNS  = errors.New("zone: apex NS RRSet must not be empty")
	ErrCNAMEConflict = errors.New("zone: node holds CNAME alongside other data")
	ErrNSEC3ParamNotApex = errors.New("zone: NSEC3PARAM may only live at the apex")
	ErrNonUniformTTL = errors.New("zone: TTLs within an RRSet must be uniform")
)

// Zone is one immutable, published zone: an apex name plus its nodes in
// canonical order, spec.md §3. A Zone is never mutated after
// construction; Apply produces a new Zone sharing untouched *Node
// pointers with the old one.
type Zone struct {
	Apex dname.Name

	// nodes is sorted by CanonicalKey ascending; canonical iteration and
	// predecessor lookup both work directly off this slice.
	nodes []*Node
	byKey map[string]*Node

	Signed  bool
	Serial  uint32
	nsec3   *nsec3Tree // nil unless NSEC3PARAM is present at the apex

	ixfr *ixfrChain
}

// Lookup implements spec.md §4.3's "Keyed lookup": exact match if present,
// else the closest encloser (longest ancestor present in the zone) and
// its immediate canonical-order predecessor.
type LookupResult struct {
	Node           *Node // non-nil only on exact match
	ClosestEncloser *Node
	Previous       *Node
}

// Lookup resolves name against z.
func (z *Zone) Lookup(name dname.Name) LookupResult {
	if n, ok := z.byKey[name.CanonicalKey()]; ok {
		return LookupResult{Node: n, ClosestEncloser: n, Previous: z.predecessorOf(name)}
	}

	encloser := z.closestEncloser(name)
	return LookupResult{
		ClosestEncloser: encloser,
		Previous:        z.predecessorOf(name),
	}
}

// closestEncloser walks name's ancestor chain (stripping labels one at a
// time) until it finds a node present in the zone, or returns nil if even
// the apex isn't an ancestor (name is outside this zone).
func (z *Zone) closestEncloser(name dname.Name) *Node {
	if !name.IsSubdomainOf(z.Apex) {
		return nil
	}
	cur := name
	for {
		if n, ok := z.byKey[cur.CanonicalKey()]; ok {
			return n
		}
		if cur.Equal(z.Apex) {
			return nil
		}
		parent, ok := cur.StripLeftmostLabel()
		if !ok {
			return nil
		}
		cur = parent
	}
}

// predecessorOf returns the node with the greatest CanonicalKey strictly
// less than name's, supporting O(log n) NSEC previous-name proofs (spec.md
// §3: "each node remembers its immediate predecessor ... O(1)" — here
// computed in O(log n) via binary search over the sorted slice, which is
// the read-time equivalent the spec's latitude on mechanism allows).
func (z *Zone) predecessorOf(name dname.Name) *Node {
	key := name.CanonicalKey()
	i := sort.Search(len(z.nodes), func(i int) bool {
		return z.nodes[i].Owner.CanonicalKey() >= key
	})
	if i == 0 {
		if len(z.nodes) == 0 {
			return nil
		}
		return z.nodes[len(z.nodes)-1] // wrap to the last name, RFC 4034 circular order
	}
	return z.nodes[i-1]
}

// WildcardChild returns the wildcard node under encloser, spec.md §4.3:
// "the child of E whose leftmost label is *... returns it if
// E.has_wildcard_child, else none."
func (z *Zone) WildcardChild(encloser *Node) (*Node, bool) {
	if encloser == nil || !encloser.HasWildcardChild {
		return nil, false
	}
	wildLabels := append([]string{"*"}, labelsOf(encloser.Owner)...)
	wname, err := dname.FromLabels(wildLabels)
	if err != nil {
		return nil, false
	}
	n, ok := z.byKey[wname.CanonicalKey()]
	return n, ok
}

func labelsOf(n dname.Name) []string {
	var labels []string
	s := n.Wire()
	for len(s) > 0 {
		l := int(s[0])
		if l == 0 {
			break
		}
		labels = append(labels, string(s[1:1+l]))
		s = s[1+l:]
	}
	return labels
}

// ApexNode returns the apex node.
func (z *Zone) ApexNode() *Node {
	n, _ := z.byKey[z.Apex.CanonicalKey()]
	return n
}

// Iterate calls fn for every node in canonical order along with its
// predecessor, spec.md §3: "Iteration. In-order traversal yielding (node,
// predecessor)."
func (z *Zone) Iterate(fn func(n, predecessor *Node)) {
	var prev *Node
	for _, n := range z.nodes {
		fn(n, prev)
		prev = n
	}
}

// NodeCount returns the number of nodes (including empty non-terminals).
func (z *Zone) NodeCount() int {
	return len(z.nodes)
}
