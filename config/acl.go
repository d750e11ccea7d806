package config

import (
	"fmt"
	"net/netip"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/server"
)

// ACLEntryConf is one ACL entry in its loosely-typed configuration-file
// shape: a CIDR string and an optional TSIG key name, decoded out of
// viper's map[string]interface{} form via github.com/mitchellh/mapstructure
// the way the teacher decodes its agent/combiner sections.
type ACLEntryConf struct {
	Net        string `mapstructure:"net" validate:"required"`
	Key        string `mapstructure:"key"`
	RequireKey bool   `mapstructure:"require_key"`
}

// ResolveACL converts a configuration-shaped ACL into the server package's
// runtime ACL (a parsed netip.Prefix and dname.Name per entry).
func ResolveACL(entries []ACLEntryConf) (server.ACL, error) {
	acl := make(server.ACL, 0, len(entries))
	for _, e := range entries {
		prefix, err := netip.ParsePrefix(e.Net)
		if err != nil {
			// A bare address (no /bits) is a common shorthand; treat it as
			// a host route rather than rejecting the entry.
			addr, aerr := netip.ParseAddr(e.Net)
			if aerr != nil {
				return nil, fmt.Errorf("config: acl entry %q: %w", e.Net, err)
			}
			prefix = netip.PrefixFrom(addr, addr.BitLen())
		}

		entry := server.ACLEntry{Net: prefix, RequireKey: e.RequireKey}
		if e.Key != "" {
			keyName, err := parseDottedName(e.Key)
			if err != nil {
				return nil, fmt.Errorf("config: acl entry key %q: %w", e.Key, err)
			}
			entry.KeyName = keyName
			entry.RequireKey = true
		}
		acl = append(acl, entry)
	}
	return acl, nil
}

func parseDottedName(s string) (dname.Name, error) {
	if s == "" || s == "." {
		return dname.Root, nil
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	labels := splitDotted(s)
	return dname.FromLabels(labels)
}

func splitDotted(s string) []string {
	var labels []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			labels = append(labels, s[start:i])
			start = i + 1
		}
	}
	labels = append(labels, s[start:])
	return labels
}
