package config

import (
	"fmt"
	"strings"

	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/server"
	"github.com/sandpiper-dns/adns/zone"
)

// ZoneConf is one configured zone, spec.md §6: "A set of zones, each
// with: apex name, initial contents, master address(es) for secondary
// zones, ACL entries... per operation class, notify targets,
// signing-enabled flag." Initial contents are a structured record list
// rather than zone-file text, per spec.md §1's "Zone-file text parser...
// [is] deliberately OUT of scope."
type ZoneConf struct {
	Apex    string `validate:"required"`
	Type    string `validate:"required,oneof=primary secondary"`
	Primary string `mapstructure:"primary"` // master address, required for secondary
	Notify  []string

	Records []RRConf

	NotifyACL []ACLEntryConf `mapstructure:"notify_acl"`
	UpdateACL []ACLEntryConf `mapstructure:"update_acl"`
	XferACL   []ACLEntryConf `mapstructure:"xfer_acl"`

	SigningEnabled bool      `mapstructure:"signing_enabled"`
	TTLPolicy      string    `mapstructure:"ttl_policy"` // "reject" | "coerce"; default by Type
}

// RRConf is one resource record in a zone's initial-contents list.
type RRConf struct {
	Owner string `validate:"required"`
	Type  string `validate:"required"`
	Class string
	TTL   uint32
	RData string `mapstructure:"rdata"`
}

// BuildZone constructs a zone.Zone from a ZoneConf's initial contents.
func BuildZone(zc ZoneConf) (*zone.Zone, error) {
	apex, err := parseDottedName(zc.Apex)
	if err != nil {
		return nil, fmt.Errorf("config: zone %s: apex: %w", zc.Apex, err)
	}

	records := make([]zone.InputRR, 0, len(zc.Records))
	for _, rc := range zc.Records {
		ir, err := buildInputRR(rc)
		if err != nil {
			return nil, fmt.Errorf("config: zone %s: %w", zc.Apex, err)
		}
		records = append(records, ir)
	}

	// Explicit ttl_policy wins; absent it, primary zones reject a
	// non-uniform RRSet TTL and secondary (transfer-loaded) zones coerce
	// to the first-seen TTL, the spec's recommended default (spec.md §9).
	opts := zone.LoadOptions{TTLPolicy: zone.TTLReject}
	switch strings.ToLower(zc.TTLPolicy) {
	case "coerce":
		opts.TTLPolicy = zone.TTLCoerce
	case "reject":
		opts.TTLPolicy = zone.TTLReject
	case "":
		if strings.EqualFold(zc.Type, "secondary") {
			opts.TTLPolicy = zone.TTLCoerce
		}
	}

	z, err := zone.Load(apex, records, opts)
	if err != nil {
		return nil, fmt.Errorf("config: zone %s: %w", zc.Apex, err)
	}
	return z, nil
}

func buildInputRR(rc RRConf) (zone.InputRR, error) {
	owner, err := parseDottedName(rc.Owner)
	if err != nil {
		return zone.InputRR{}, fmt.Errorf("owner %q: %w", rc.Owner, err)
	}
	typ, ok := rrtype.TypeByName(strings.ToUpper(rc.Type))
	if !ok {
		return zone.InputRR{}, fmt.Errorf("owner %q: unknown type %q", rc.Owner, rc.Type)
	}
	class := rrtype.ClassINET
	if strings.EqualFold(rc.Class, "CH") {
		class = rrtype.ClassCH
	}
	rdata, err := ParseRData(typ, rc.RData)
	if err != nil {
		return zone.InputRR{}, fmt.Errorf("owner %q: %w", rc.Owner, err)
	}
	return zone.InputRR{Owner: owner, Type: typ, Class: class, TTL: rc.TTL, RData: rdata}, nil
}

// BuildPolicy converts a ZoneConf's three ACL lists into a server.ZonePolicy.
func BuildPolicy(zc ZoneConf) (*server.ZonePolicy, error) {
	notify, err := ResolveACL(zc.NotifyACL)
	if err != nil {
		return nil, fmt.Errorf("config: zone %s: notify_acl: %w", zc.Apex, err)
	}
	update, err := ResolveACL(zc.UpdateACL)
	if err != nil {
		return nil, fmt.Errorf("config: zone %s: update_acl: %w", zc.Apex, err)
	}
	xfer, err := ResolveACL(zc.XferACL)
	if err != nil {
		return nil, fmt.Errorf("config: zone %s: xfer_acl: %w", zc.Apex, err)
	}
	return &server.ZonePolicy{NotifyACL: notify, UpdateACL: update, XferACL: xfer}, nil
}
