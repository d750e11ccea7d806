package server

import (
	"time"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrl"
	"github.com/sandpiper-dns/adns/tsig"
	"github.com/sandpiper-dns/adns/zone"
)

// ZonePolicy is the per-zone access-control and behavior configuration
// spec.md §4.4.5 requires: "Each transaction is evaluated against a
// configured ACL keyed by (source address, optional TSIG key name)."
type ZonePolicy struct {
	NotifyACL ACL
	UpdateACL ACL
	XferACL   ACL
}

// Identity answers the CHAOS-class version.server/id.server queries,
// spec.md §4.4.1's "other, QCLASS=CH" path.
type Identity struct {
	Version string
	ID      string
}

// Processor is the shared, long-lived state a transaction is built
// against: the zone database, TSIG keys, rate limiter, and per-zone
// policy. It holds no per-transaction state itself (spec.md §5: "a
// transaction is itself single-threaded"), so one Processor is shared by
// every concurrent worker.
type Processor struct {
	DB       *zone.Database
	Keys     *tsig.KeyStore
	RateLimit *rrl.RRL // nil disables rate limiting

	// Policies is keyed by apex CanonicalKey. A zone absent from this map
	// has no ACL requirements beyond the unconditional ones (NOTIFY, UPDATE
	// and zone transfers always require a match against an empty ACL, which
	// never matches, so an unconfigured zone answers all three NOTAUTH).
	Policies map[string]*ZonePolicy

	Identity Identity

	// ServerMaxUDPPayload bounds the response size cap of spec.md
	// §4.4.2's min(client_edns_payload, server_max_payload, 512) rule.
	ServerMaxUDPPayload int

	// TSIGFudge is the allowed clock-skew window in seconds used both to
	// verify inbound TSIG and to sign outbound TSIG.
	TSIGFudge uint16

	// MaxCNAMEChain bounds the CNAME-following loop of spec.md §4.4.2
	// step 3: "Follow at most a bounded chain; beyond the bound, stop
	// without error."
	MaxCNAMEChain int

	// Now returns the current time; overridable in tests so TSIG fudge
	// checks are deterministic.
	Now func() time.Time
}

// NewProcessor returns a Processor with spec.md's defaults: a 4096-byte
// server max payload, a 300-second TSIG fudge (RFC 2845's recommendation),
// and a CNAME chain bound of 8.
func NewProcessor(db *zone.Database, keys *tsig.KeyStore, limiter *rrl.RRL) *Processor {
	return &Processor{
		DB:                  db,
		Keys:                keys,
		RateLimit:           limiter,
		Policies:            map[string]*ZonePolicy{},
		ServerMaxUDPPayload: 4096,
		TSIGFudge:           300,
		MaxCNAMEChain:       8,
		Now:                 time.Now,
	}
}

func (p *Processor) policyFor(apex dname.Name) *ZonePolicy {
	if pol, ok := p.Policies[apex.CanonicalKey()]; ok {
		return pol
	}
	return &ZonePolicy{}
}
