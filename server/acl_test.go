package server

import (
	"net/netip"
	"testing"
)

func TestACLMatchFirstWins(t *testing.T) {
	p1 := netip.MustParsePrefix("192.0.2.0/24")
	p2 := netip.MustParsePrefix("192.0.2.5/32")
	acl := ACL{{Net: p1}, {Net: p2}}

	entry, ok := acl.Match(stubAddr("192.0.2.5:53"))
	if !ok {
		t.Fatalf("expected a match")
	}
	if entry.Net != p1 {
		t.Fatalf("expected the first matching entry (%v) to win, got %v", p1, entry.Net)
	}
}

func TestACLMatchNoneFound(t *testing.T) {
	acl := ACL{{Net: netip.MustParsePrefix("192.0.2.0/24")}}
	if _, ok := acl.Match(stubAddr("203.0.113.1:53")); ok {
		t.Fatalf("did not expect a match outside the configured prefix")
	}
}

func TestACLMatchUnparseableAddr(t *testing.T) {
	acl := ACL{{Net: netip.MustParsePrefix("192.0.2.0/24")}}
	if _, ok := acl.Match(stubAddr("not-an-address")); ok {
		t.Fatalf("did not expect a match for an unparseable address")
	}
}

func TestACLEntrySatisfiedNoKeyRequired(t *testing.T) {
	e := ACLEntry{}
	if !e.Satisfied(name(t, "any", "key"), false) {
		t.Fatalf("an entry with no key requirement should always be satisfied")
	}
}

func TestACLEntrySatisfiedRequiresMatchingVerifiedKey(t *testing.T) {
	keyName := name(t, "axfr-key")
	e := ACLEntry{RequireKey: true, KeyName: keyName}

	if e.Satisfied(keyName, false) {
		t.Fatalf("an unverified key must not satisfy the requirement")
	}
	if e.Satisfied(name(t, "other-key"), true) {
		t.Fatalf("a verified but differently-named key must not satisfy the requirement")
	}
	if !e.Satisfied(keyName, true) {
		t.Fatalf("a verified, matching key should satisfy the requirement")
	}
}
