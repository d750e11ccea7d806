package server

import (
	"net"
	"net/netip"

	"github.com/sandpiper-dns/adns/dname"
)

// ACLEntry permits traffic from a source network, optionally requiring a
// named TSIG key. With RequireKey false the entry matches whether or not
// the transaction carries a key; with RequireKey set, only a verified key
// named KeyName satisfies it.
type ACLEntry struct {
	Net        netip.Prefix
	KeyName    dname.Name
	RequireKey bool
}

// ACL is an ordered list of entries; the first match wins, spec.md §4.4.5.
type ACL []ACLEntry

// Match finds the first entry whose network contains src, without regard
// to TSIG — callers separately compare the matched entry's RequireKey/
// KeyName against the transaction's verified key via Satisfied. A failed
// key check is answered with the same plain NOTAUTH as no address match;
// no TSIG BADKEY error is attached in that case.
func (acl ACL) Match(src net.Addr) (ACLEntry, bool) {
	addr, ok := addrOf(src)
	if !ok {
		return ACLEntry{}, false
	}
	for _, e := range acl {
		if e.Net.Contains(addr) {
			return e, true
		}
	}
	return ACLEntry{}, false
}

// Satisfied reports whether e's key requirement is met by a transaction
// that verified keyVerified with key name keyName.
func (e ACLEntry) Satisfied(keyName dname.Name, keyVerified bool) bool {
	if !e.RequireKey {
		return true
	}
	return keyVerified && keyName.Equal(e.KeyName)
}

func addrOf(a net.Addr) (netip.Addr, bool) {
	host, _, err := net.SplitHostPort(a.String())
	if err != nil {
		host = a.String()
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr, true
}
