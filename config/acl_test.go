package config

import (
	"testing"

	"github.com/sandpiper-dns/adns/dname"
)

func TestResolveACLNet(t *testing.T) {
	acl, err := ResolveACL([]ACLEntryConf{{Net: "192.0.2.0/24"}})
	if err != nil {
		t.Fatalf("ResolveACL: %v", err)
	}
	if len(acl) != 1 {
		t.Fatalf("len(acl) = %d, want 1", len(acl))
	}
}

func TestResolveACLBareAddress(t *testing.T) {
	acl, err := ResolveACL([]ACLEntryConf{{Net: "192.0.2.1"}})
	if err != nil {
		t.Fatalf("ResolveACL: %v", err)
	}
	if acl[0].Net.Bits() != 32 {
		t.Fatalf("Net.Bits() = %d, want 32 (host route)", acl[0].Net.Bits())
	}
}

func TestResolveACLWithKeyRequiresKey(t *testing.T) {
	acl, err := ResolveACL([]ACLEntryConf{{Net: "0.0.0.0/0", Key: "update-key"}})
	if err != nil {
		t.Fatalf("ResolveACL: %v", err)
	}
	if !acl[0].RequireKey {
		t.Fatalf("expected RequireKey to be forced true when a key name is set")
	}
	if acl[0].KeyName.String() != "update-key." {
		t.Fatalf("KeyName = %q, want update-key.", acl[0].KeyName.String())
	}
}

func TestResolveACLBadNet(t *testing.T) {
	if _, err := ResolveACL([]ACLEntryConf{{Net: "not-a-net"}}); err == nil {
		t.Fatalf("expected error for malformed net")
	}
}

func TestBuildKeyStore(t *testing.T) {
	store, err := BuildKeyStore(map[string]TsigKeyConf{
		"update-key": {Algorithm: "hmac-sha256", Secret: "c2VjcmV0MTIzNDU2"},
	})
	if err != nil {
		t.Fatalf("BuildKeyStore: %v", err)
	}
	name, err := dname.FromLabels([]string{"update-key"})
	if err != nil {
		t.Fatalf("FromLabels: %v", err)
	}
	if _, ok := store.Lookup(name); !ok {
		t.Fatalf("expected key update-key. to be present")
	}
}

func TestBuildRRLConfig(t *testing.T) {
	c := BuildRRLConfig(RateLimitConf{
		RequestsPerSecond: 10,
		PerCategory:       map[string]int{"nxdomain": 3, "error": 1},
	})
	if c.RequestsPerSecond != 10 {
		t.Fatalf("RequestsPerSecond = %d, want 10", c.RequestsPerSecond)
	}
	if c.PerCategory[3] != 3 {
		t.Fatalf("PerCategory[nxdomain] = %d, want 3", c.PerCategory[3])
	}
}
