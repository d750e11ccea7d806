package zone

import (
	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

// Node holds all RRSets sharing one owner name in one zone, spec.md §3:
// "All RRSets sharing one owner name in one zone." Nodes are immutable
// once published; an update that touches a node's RRSets clones the node
// rather than mutating it in place, so earlier Zone snapshots keep
// pointing at the original.
type Node struct {
	Owner  dname.Name
	RRSets map[uint16]*RRSet

	IsApex           bool
	IsDelegation     bool
	IsNonAuth        bool
	HasWildcardChild bool
}

// newEmptyNode creates an owner-only placeholder node (an "empty
// non-terminal", spec.md §3: "parents are materialized as empty
// non-terminals if they have no own RRs but have descendants").
func newEmptyNode(owner dname.Name) *Node {
	return &Node{Owner: owner, RRSets: map[uint16]*RRSet{}}
}

// clone returns a shallow copy of n suitable as the basis for an
// in-progress modification; RRSets map entries are copied by reference
// and replaced individually as they are touched (structural sharing).
func (n *Node) clone() *Node {
	cp := &Node{
		Owner:            n.Owner,
		RRSets:           make(map[uint16]*RRSet, len(n.RRSets)),
		IsApex:           n.IsApex,
		IsDelegation:     n.IsDelegation,
		IsNonAuth:        n.IsNonAuth,
		HasWildcardChild: n.HasWildcardChild,
	}
	for t, s := range n.RRSets {
		cp.RRSets[t] = s
	}
	return cp
}

// HasType reports whether the node carries an RRSet of the given type.
func (n *Node) HasType(t uint16) bool {
	_, ok := n.RRSets[t]
	return ok
}

// IsEmpty reports whether n carries no RRSets at all (a pure
// empty-non-terminal or a node whose last RRSet was just deleted).
func (n *Node) IsEmpty() bool {
	return len(n.RRSets) == 0
}

// recomputeFlags derives IsDelegation from current RRSet contents; callers
// are responsible for IsNonAuth (which depends on ancestors) and IsApex
// (fixed at zone construction).
func (n *Node) recomputeFlags() {
	_, hasNS := n.RRSets[rrtype.TypeNS]
	n.IsDelegation = hasNS && !n.IsApex
}
