package rrl

// DefaultConfig returns the conservative thresholds recommended by the
// markdingo rrl package's documentation for a moderately loaded
// authoritative server: generous enough not to clip normal resolvers,
// tight enough to blunt a reflection flood.
func DefaultConfig() Config {
	var cfg Config
	cfg.RequestsPerSecond = 0 // unset: IP-wide limiting is opt-in
	cfg.PerCategory[AllowanceAnswer] = 0
	cfg.PerCategory[AllowanceReferral] = 0
	cfg.PerCategory[AllowanceNoData] = 0
	cfg.PerCategory[AllowanceNXDomain] = 5
	cfg.PerCategory[AllowanceError] = 5
	cfg.SlipFactor = 2
	cfg.IPv4PrefixLen = 24
	cfg.IPv6PrefixLen = 56
	cfg.NumShards = 32
	return cfg
}
