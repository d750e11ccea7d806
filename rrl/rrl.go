package rrl

import (
	"hash/fnv"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/maps"
)

// Config carries the rate-limit parameters spec.md §6 says the core
// consumes: "responses-per-second threshold, slip factor (how often to
// send a truncated reply instead of dropping)." Thresholds are supplied
// per AllowanceCategory, the same granularity as the configuration-name
// table the markdingo rrl package documents (responses/referrals/nodata/
// nxdomains/errors-per-second).
type Config struct {
	RequestsPerSecond int // source-address limit, regardless of category; 0 disables
	PerCategory       [5]int // indexed by AllowanceCategory; 0 disables that category
	SlipFactor        uint32 // 0 disables slip (always Drop over threshold)

	IPv4PrefixLen int // bits of a v4 source address that share one account; default /24
	IPv6PrefixLen int // bits of a v6 source address that share one account; default /56

	NumShards     int // default 32
	ShardCapacity int // 0 = unbounded
}

func (c Config) withDefaults() Config {
	if c.IPv4PrefixLen == 0 {
		c.IPv4PrefixLen = 24
	}
	if c.IPv6PrefixLen == 0 {
		c.IPv6PrefixLen = 56
	}
	if c.NumShards == 0 {
		c.NumShards = 32
	}
	return c
}

// RRL is a sharded rate limiter, one instance per listener (or shared
// across listeners that should see the same accounts).
type RRL struct {
	cfg    Config
	shards []*shard
}

// New builds a limiter from cfg.
func New(cfg Config) *RRL {
	cfg = cfg.withDefaults()
	r := &RRL{cfg: cfg, shards: make([]*shard, cfg.NumShards)}
	for i := range r.shards {
		r.shards[i] = newShard(cfg.ShardCapacity)
	}
	return r
}

func (r *RRL) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// addrPrefix masks src down to the configured network prefix, so that
// many source ports/hosts within one subnet share a single IP account.
func (r *RRL) addrPrefix(src net.Addr) string {
	host, _, err := net.SplitHostPort(src.String())
	if err != nil {
		host = src.String()
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return host
	}
	bits := r.cfg.IPv6PrefixLen
	if addr.Is4() || addr.Is4In6() {
		bits = r.cfg.IPv4PrefixLen
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return host
	}
	return prefix.String()
}

func (r *RRL) allowanceFor(cat AllowanceCategory) int {
	if int(cat) >= len(r.cfg.PerCategory) {
		return 0
	}
	return r.cfg.PerCategory[cat]
}

// Debit decrements the rate-limit accounts associated with src (the
// client's network) and tuple (the response shape), returning the
// recommended Action. It mirrors the markdingo rrl package's two-stage
// structure: an IP-address limit applies regardless of transport, then a
// response-tuple limit applies to UDP only (TCP is assumed resistant to
// source-address spoofing, per spec.md §5's cancellation/ordering model —
// RRL exists to blunt reflection/amplification abuse, which requires a
// spoofable, connectionless transport).
func (r *RRL) Debit(src net.Addr, udp bool, tuple ResponseTuple, now time.Time) (Action, IPReason, RTReason) {
	ipr := IPNotConfigured
	rtr := RTNotReached

	if r.cfg.RequestsPerSecond > 0 {
		prefix := r.addrPrefix(src)
		balance, _, ok := r.shardFor(prefix).debit(now, prefix, r.cfg.RequestsPerSecond, 0)
		if !ok {
			return Drop, IPCacheFull, rtr
		}
		if balance < 0 {
			return Drop, IPRateLimit, rtr
		}
		ipr = IPOk
	}

	if !udp {
		return Send, ipr, RTNotUDP
	}

	allowance := r.allowanceFor(tuple.Category)
	if allowance == 0 {
		return Send, ipr, RTNotConfigured
	}

	prefix := r.addrPrefix(src)
	key := accountKey(prefix, tuple)
	balance, slip, ok := r.shardFor(key).debit(now, key, allowance, r.cfg.SlipFactor)
	if !ok {
		return Drop, ipr, RTCacheFull
	}
	if balance < 0 {
		if slip {
			return Slip, ipr, RTRateLimit
		}
		return Drop, ipr, RTRateLimit
	}
	return Send, ipr, RTOk
}

func accountKey(ipPrefix string, tuple ResponseTuple) string {
	var b strings.Builder
	b.WriteString(ipPrefix)
	b.WriteByte('/')
	b.WriteString(strconv.Itoa(int(tuple.Type)))
	b.WriteByte('/')
	b.WriteByte(byte('0' + tuple.Category))
	b.WriteByte('/')
	b.WriteString(strings.ToLower(tuple.SalientName))
	return b.String()
}

// ShardSizes returns the number of live accounts per shard, for metrics;
// it walks every shard's key set via golang.org/x/exp/maps so the shard
// internals stay unexported.
func (r *RRL) ShardSizes() []int {
	sizes := make([]int, len(r.shards))
	for i, s := range r.shards {
		s.mu.Lock()
		sizes[i] = len(maps.Keys(s.accounts))
		s.mu.Unlock()
	}
	return sizes
}
