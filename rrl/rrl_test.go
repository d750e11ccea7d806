package rrl

import (
	"net"
	"testing"
	"time"
)

func addr(t *testing.T, ip string) net.Addr {
	t.Helper()
	return &net.UDPAddr{IP: net.ParseIP(ip), Port: 53000}
}

func tuple(cat AllowanceCategory) ResponseTuple {
	return ResponseTuple{Class: 1, Type: 1, Category: cat, SalientName: "example.com."}
}

func TestDebitAllowsUnderThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 10
	r := New(cfg)
	now := time.Unix(0, 0)

	for i := 0; i < 5; i++ {
		action, _, rtr := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
		if action != Send || rtr != RTOk {
			t.Fatalf("iteration %d: got action=%v rtr=%v, want Send/RTOk", i, action, rtr)
		}
	}
}

func TestDebitDropsOverThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 2
	cfg.SlipFactor = 0
	r := New(cfg)
	now := time.Unix(0, 0)

	for i := 0; i < 2; i++ {
		action, _, _ := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
		if action != Send {
			t.Fatalf("iteration %d: expected Send while under threshold", i)
		}
	}
	action, _, rtr := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	if action != Drop || rtr != RTRateLimit {
		t.Fatalf("got action=%v rtr=%v, want Drop/RTRateLimit", action, rtr)
	}
}

func TestDebitSlipsEveryOtherRound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 1
	cfg.SlipFactor = 2
	r := New(cfg)
	now := time.Unix(0, 0)

	r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now) // consumes the one allowed token

	first, _, _ := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	second, _, _ := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	if first != Drop {
		t.Fatalf("first over-threshold round: got %v, want Drop", first)
	}
	if second != Slip {
		t.Fatalf("second over-threshold round: got %v, want Slip", second)
	}
}

func TestDebitTCPBypassesResponseShapeLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 1
	r := New(cfg)
	now := time.Unix(0, 0)

	r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	action, _, rtr := r.Debit(addr(t, "192.0.2.1"), false, tuple(AllowanceNXDomain), now)
	if action != Send || rtr != RTNotUDP {
		t.Fatalf("got action=%v rtr=%v, want Send/RTNotUDP for a TCP transaction", action, rtr)
	}
}

func TestDebitIPLimitAppliesAcrossCategories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RequestsPerSecond = 1
	r := New(cfg)
	now := time.Unix(0, 0)

	action1, ipr1, _ := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceAnswer), now)
	if action1 != Send || ipr1 != IPOk {
		t.Fatalf("first request should pass the IP limit, got action=%v ipr=%v", action1, ipr1)
	}
	action2, ipr2, _ := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	if action2 != Drop || ipr2 != IPRateLimit {
		t.Fatalf("second request should trip the shared IP limit, got action=%v ipr=%v", action2, ipr2)
	}
}

func TestDebitSharesAccountAcrossIPv4Subnet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 1
	r := New(cfg)
	now := time.Unix(0, 0)

	r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	action, _, _ := r.Debit(addr(t, "192.0.2.254"), true, tuple(AllowanceNXDomain), now)
	if action != Drop {
		t.Fatalf("expected .1 and .254 to share a /24 account, got %v", action)
	}
}

func TestDebitWindowResetsAfterOneSecond(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 1
	r := New(cfg)
	now := time.Unix(0, 0)

	r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	action, _, _ := r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now.Add(2*time.Second))
	if action != Send {
		t.Fatalf("expected a fresh window after 2s to allow the request, got %v", action)
	}
}

func TestShardSizesReportsLiveAccounts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PerCategory[AllowanceNXDomain] = 10
	r := New(cfg)
	now := time.Unix(0, 0)

	r.Debit(addr(t, "192.0.2.1"), true, tuple(AllowanceNXDomain), now)
	r.Debit(addr(t, "203.0.113.5"), true, tuple(AllowanceNXDomain), now)

	total := 0
	for _, n := range r.ShardSizes() {
		total += n
	}
	if total != 2 {
		t.Fatalf("expected 2 live accounts across shards, got %d", total)
	}
}
