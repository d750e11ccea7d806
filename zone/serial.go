package zone

import "github.com/sandpiper-dns/adns/dname"

// SerialGT reports whether a is strictly greater than b under RFC 1982
// serial number arithmetic (mod 2^32), spec.md §4.3: "The SOA serial on
// the new zone MUST be strictly greater (mod 2^32, RFC 1982 arithmetic)
// than the old one."
func SerialGT(a, b uint32) bool {
	d := a - b
	return d != 0 && d < 1<<31
}

// SerialOf reads the serial field out of normalized SOA rdata, exported
// for callers outside this package (the query processor's UPDATE-section
// SOA-serial-not-advancing check, spec.md §4.4.3) that need it without
// going through a full Zone.
func SerialOf(rdata []byte) uint32 {
	return decodeSOASerial(rdata)
}

// SOAWithSerial returns a copy of rdata (normalized SOA rdata) with its
// serial field overwritten to serial. The query processor's IXFR producer
// uses this to reconstruct the bracketing SOA record at each retained
// history step, since only the step's FromSerial/ToSerial are kept, not a
// full historical SOA snapshot.
func SOAWithSerial(rdata []byte, serial uint32) []byte {
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
	out[pos] = byte(serial >> 24)
	out[pos+1] = byte(serial >> 16)
	out[pos+2] = byte(serial >> 8)
	out[pos+3] = byte(serial)
	return out
}
