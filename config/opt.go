package config

// OptTemplateConf is the server's EDNS OPT template, spec.md §6: "A server
// OPT template: advertised payload size, NSID value, DO policy."
type OptTemplateConf struct {
	MaxPayload           uint16 `mapstructure:"max_payload"`
	NSID                 string `mapstructure:"nsid"`
	MirrorUnknownOptions bool   `mapstructure:"mirror_unknown_options"`
}

// RateLimitConf carries the rate-limit parameters spec.md §6 names:
// "responses-per-second threshold, slip factor." PerCategory is keyed by
// the category names of this package's categoryNames table (answer,
// referral, nodata, nxdomain, error), decoded from a loosely-typed viper
// map via mapstructure.
type RateLimitConf struct {
	RequestsPerSecond int            `mapstructure:"requests_per_second"`
	PerCategory       map[string]int `mapstructure:"per_category"`
	SlipFactor        uint32         `mapstructure:"slip_factor"`
	IPv4PrefixLen     int            `mapstructure:"ipv4_prefix_len"`
	IPv6PrefixLen     int            `mapstructure:"ipv6_prefix_len"`
	NumShards         int            `mapstructure:"num_shards"`
	ShardCapacity     int            `mapstructure:"shard_capacity"`
}
