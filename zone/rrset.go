package zone

import "bytes"

// RR is one resource record's rdata, paired with the owner/type/class
// context its enclosing RRSet and Node already carry (spec.md §3: "Tuple
// (owner, type, class, ttl, rdata)" — owner/type/class/ttl are hoisted
// onto the containing Node/RRSet so that RRSet invariants, like uniform
// TTL, are structural rather than checked record-by-record on every
// read).
type RR struct {
	RData []byte
}

// Equal reports byte-for-byte rdata equality, used by DDNS prerequisite
// and delete-exact-RR processing (spec.md §4.4.3).
func (r RR) Equal(other RR) bool {
	return bytes.Equal(r.RData, other.RData)
}

// RRSet is all RRs at one owner sharing (type, class), spec.md §3: "Within
// an RRSet all TTLs MUST be equal."
type RRSet struct {
	Type  uint16
	Class uint16
	TTL   uint32
	RRs   []RR
}

// Clone returns a deep copy of the RRSet (its RR slice and each RData),
// used when a copy-on-write update must modify one RRSet's records
// without mutating the published version other readers still hold.
func (s *RRSet) Clone() *RRSet {
	cp := &RRSet{Type: s.Type, Class: s.Class, TTL: s.TTL, RRs: make([]RR, len(s.RRs))}
	for i, rr := range s.RRs {
		cp.RRs[i] = RR{RData: append([]byte(nil), rr.RData...)}
	}
	return cp
}

// Contains reports whether rdata appears verbatim among s's records.
func (s *RRSet) Contains(rdata []byte) bool {
	for _, rr := range s.RRs {
		if bytes.Equal(rr.RData, rdata) {
			return true
		}
	}
	return false
}

// withoutRData returns a copy of s with the first record equal to rdata
// removed, and whether a record was found at all.
func (s *RRSet) withoutRData(rdata []byte) (*RRSet, bool) {
	cp := s.Clone()
	for i, rr := range cp.RRs {
		if bytes.Equal(rr.RData, rdata) {
			cp.RRs = append(cp.RRs[:i], cp.RRs[i+1:]...)
			return cp, true
		}
	}
	return cp, false
}
