package zone

// DiffSequence is one version step of a zone: the RRs removed and added
// going from FromSerial to ToSerial. Adapted from the teacher's
// tdns/ixfr.Ixfr/DiffSequence shape, but built at apply time (server side)
// instead of parsed from an incoming transfer (client side).
type DiffSequence struct {
	FromSerial uint32
	ToSerial   uint32
	Removed    []InputRR
	Added      []InputRR
}

// ixfrChain is the bounded, append-only history of DiffSequences a zone
// retains for incremental-transfer generation.
type ixfrChain struct {
	diffs []DiffSequence
}

const defaultIxfrChainLen = 64

func (c *ixfrChain) appended(d DiffSequence) *ixfrChain {
	var prior []DiffSequence
	if c != nil {
		prior = c.diffs
	}
	diffs := make([]DiffSequence, 0, len(prior)+1)
	diffs = append(diffs, prior...)
	diffs = append(diffs, d)
	if len(diffs) > defaultIxfrChainLen {
		diffs = diffs[len(diffs)-defaultIxfrChainLen:]
	}
	return &ixfrChain{diffs: diffs}
}

// since returns every retained DiffSequence from fromSerial onward, in
// order, and whether fromSerial was found in the retained chain at all.
func (c *ixfrChain) since(fromSerial uint32) ([]DiffSequence, bool) {
	if c == nil {
		return nil, false
	}
	for i, d := range c.diffs {
		if d.FromSerial == fromSerial {
			return c.diffs[i:], true
		}
	}
	return nil, false
}

// IxfrChain returns the retained diff history, for GenerateIXFR / testing.
func (z *Zone) IxfrChain() []DiffSequence {
	if z.ixfr == nil {
		return nil
	}
	return z.ixfr.diffs
}

// GenerateIXFR returns the ordered diff sequences needed to bring a client
// at fromSerial up to z's current serial, or ok=false if z's retained
// chain doesn't go back far enough — the spec.md §9 Open Question
// decision is to fall back to AXFR in that case (decided in DESIGN.md),
// which callers implement by checking ok and serving AXFR instead.
func (z *Zone) GenerateIXFR(fromSerial uint32) ([]DiffSequence, bool) {
	if fromSerial == z.Serial {
		return nil, true // client is current; empty incremental response
	}
	return z.ixfr.since(fromSerial)
}
