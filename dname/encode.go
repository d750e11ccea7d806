package dname

// Compressor tracks, for one outgoing message, which name suffixes have
// already been written and at what wire offset, so later names can be
// compressed against them. It is never shared across messages/transactions
// (spec.md §5: "Compression table: per-transaction; never shared").
type Compressor struct {
	offsets map[string]int // lowercased wire suffix -> offset it was written at
}

// NewCompressor returns an empty per-message compression table.
func NewCompressor() *Compressor {
	return &Compressor{offsets: make(map[string]int)}
}

// Append writes n to buf, optionally compressing against c (which may be
// nil to always emit uncompressed — compression is optional on output per
// spec.md §4.1, but a decoder MUST always understand it on input). It
// returns the extended buffer. Any suffix it writes in full is registered
// in c for reuse by subsequent names, provided its offset is encodable
// (< 16384).
func (c *Compressor) Append(buf []byte, n Name) []byte {
	base := len(buf)
	wire := n.wire
	lower := n.Lower().wire
	pos := 0

	for {
		suffix := lower[pos:]

		if c != nil {
			if off, ok := c.offsets[suffix]; ok {
				buf = append(buf, byte(0xC0|(off>>8)), byte(off&0xFF))
				return buf
			}
		}

		if suffix == "\x00" {
			buf = append(buf, wire[pos])
			return buf
		}

		if c != nil {
			off := base + pos
			if off < maxPointerTarget {
				c.offsets[suffix] = off
			}
		}

		l := int(wire[pos])
		buf = append(buf, wire[pos:pos+1+l]...)
		pos += 1 + l
	}
}

// AppendUncompressed writes n to buf with no compression, for rdata fields
// the type descriptor table marks non-compressible.
func AppendUncompressed(buf []byte, n Name) []byte {
	return append(buf, n.wire...)
}

// Checkpoint returns a snapshot of the compression table suitable for a
// later Rollback, so a caller can speculatively append a group of RRs and
// undo the attempt (message-size truncation) without leaking compression
// offsets that point at bytes which never made it into the buffer.
func (c *Compressor) Checkpoint() map[string]int {
	cp := make(map[string]int, len(c.offsets))
	for k, v := range c.offsets {
		cp[k] = v
	}
	return cp
}

// Rollback restores the compression table to a previously taken Checkpoint.
func (c *Compressor) Rollback(cp map[string]int) {
	c.offsets = cp
}
