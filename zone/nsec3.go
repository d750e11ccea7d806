package zone

import (
	"crypto/sha1"
	"encoding/base32"
	"sort"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

// nsec3Tree is the parallel tree keyed by hashed+base32hex owner name that
// a signed-with-NSEC3 zone maintains alongside its main node tree, spec.md
// §4.3: "a parallel tree of NSEC3 nodes is maintained, keyed by
// hashed+base32hex owner, and provides: (a) exact lookup by hash, (b)
// predecessor-by-hash."
type nsec3Tree struct {
	algorithm  uint8
	iterations uint16
	salt       []byte

	hashes  []string // sorted base32hex hash labels
	byHash  map[string]*Node
}

var base32hex = base32.NewEncoding("0123456789ABCDEFGHIJKLMNOPQRSTUV").WithPadding(base32.NoPadding)

// hashOwner computes the NSEC3 owner hash (RFC 5155 §5): iterated SHA-1
// salted hashing of the lowercased wire-form name.
func hashOwner(lowerWire []byte, algorithm uint8, iterations uint16, salt []byte) string {
	h := append([]byte(nil), lowerWire...)
	digest := sha1Sum(append(h, salt...))
	for i := uint16(0); i < iterations; i++ {
		digest = sha1Sum(append(digest[:], salt...))
	}
	return base32hex.EncodeToString(digest[:])
}

func sha1Sum(b []byte) []byte {
	sum := sha1.Sum(b)
	return sum[:]
}

func buildNSEC3Tree(z *Zone) *nsec3Tree {
	apexNode := z.ApexNode()
	param, ok := apexNode.RRSets[rrtype.TypeNSEC3PARAM]
	if !ok || len(param.RRs) == 0 {
		return nil
	}
	rdata := param.RRs[0].RData
	if len(rdata) < 5 {
		return nil
	}
	algo := rdata[0]
	iterations := uint16(rdata[2])<<8 | uint16(rdata[3])
	saltLen := int(rdata[4])
	var salt []byte
	if 5+saltLen <= len(rdata) {
		salt = rdata[5 : 5+saltLen]
	}

	t := &nsec3Tree{algorithm: algo, iterations: iterations, salt: salt, byHash: map[string]*Node{}}
	for _, n := range z.nodes {
		if n.IsNonAuth && !n.IsDelegation {
			continue // glue-only names below a delegation are not individually hashed
		}
		h := hashOwner(n.Owner.Lower().Wire(), algo, iterations, salt)
		t.byHash[h] = n
		t.hashes = append(t.hashes, h)
	}
	sort.Strings(t.hashes)
	return t
}

// HashName computes the NSEC3 hash of n using this tree's algorithm,
// iteration count, and salt, for callers (the query processor) that need
// to find the proof covering a name that isn't itself in the zone.
func (t *nsec3Tree) HashName(n dname.Name) string {
	if t == nil {
		return ""
	}
	return hashOwner(n.Lower().Wire(), t.algorithm, t.iterations, t.salt)
}

// LookupHash returns the node at exactly this NSEC3 hash, if any.
func (t *nsec3Tree) LookupHash(hash string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.byHash[hash]
	return n, ok
}

// PredecessorHash returns the node whose hash immediately precedes hash in
// the sorted hash order, for the no-data / name-error NSEC3 proofs.
func (t *nsec3Tree) PredecessorHash(hash string) (*Node, bool) {
	if t == nil || len(t.hashes) == 0 {
		return nil, false
	}
	i := sort.SearchStrings(t.hashes, hash)
	if i == 0 {
		return t.byHash[t.hashes[len(t.hashes)-1]], true
	}
	return t.byHash[t.hashes[i-1]], true
}

// NSEC3 exposes the zone's sidecar tree (nil if the zone is unsigned or
// signed with plain NSEC).
func (z *Zone) NSEC3() *nsec3Tree {
	return z.nsec3
}
