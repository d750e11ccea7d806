package config

import "github.com/sandpiper-dns/adns/rrl"

var categoryNames = [5]string{"answer", "referral", "nodata", "nxdomain", "error"}

// BuildRRLConfig converts the configuration-file rate-limit section into
// rrl.Config's fixed-size per-category array.
func BuildRRLConfig(c RateLimitConf) rrl.Config {
	out := rrl.Config{
		RequestsPerSecond: c.RequestsPerSecond,
		SlipFactor:        c.SlipFactor,
		IPv4PrefixLen:     c.IPv4PrefixLen,
		IPv6PrefixLen:     c.IPv6PrefixLen,
		NumShards:         c.NumShards,
		ShardCapacity:     c.ShardCapacity,
	}
	for i, name := range categoryNames {
		out.PerCategory[i] = c.PerCategory[name]
	}
	return out
}
