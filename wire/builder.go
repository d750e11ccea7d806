package wire

import (
	"encoding/binary"

	"github.com/sandpiper-dns/adns/dname"
)

// RRSet is a group of RRs sharing (owner, type, class) plus, where the
// caller wants the section-overflow algorithm to treat them atomically,
// any RRSIG covering them. The Builder always adds or rejects an RRSet as
// one unit — spec.md §4.4.2: "trailing RRSets are dropped RRSet-at-a-time."
type RRSet []RR

// Builder assembles one outgoing message, enforcing spec.md §4.2's output
// contract: header first, a reserved trailing footprint for TSIG, section
// counts patched into the header by Finish, and RRset-at-a-time
// truncation with TC when the assembled message would exceed MaxSize.
type Builder struct {
	buf         []byte
	c           *dname.Compressor
	header      Header
	maxSize     int
	tsigReserve int

	anCount, nsCount, arCount uint16
	truncated                 bool
}

// NewBuilder starts a new response. maxSize is the hard cap on the final
// wire size (already negotiated per spec.md §4.4.2's response-size-cap
// rule); tsigReserve is the byte footprint that must stay available for a
// TSIG RR to be appended after Finish, 0 if the transaction is unsigned.
func NewBuilder(header Header, maxSize, tsigReserve int) *Builder {
	b := &Builder{
		c:           dname.NewCompressor(),
		header:      header,
		maxSize:     maxSize,
		tsigReserve: tsigReserve,
	}
	b.buf = header.Encode(nil)
	return b
}

// budget is the number of bytes still available for non-TSIG content.
func (b *Builder) budget() int {
	return b.maxSize - b.tsigReserve
}

// WriteQuestion appends the (optional) question. It is never subject to
// truncation: a response always echoes the question that produced it, or
// has none.
func (b *Builder) WriteQuestion(q *Question) {
	if q == nil {
		return
	}
	b.buf = EncodeQuestion(b.buf, *q, b.c)
	b.header.QDCount = 1
}

// addSection attempts to append every RR in set atomically, rolling back
// on overflow. count is a pointer to the section's running RR count.
func (b *Builder) addSection(set RRSet, count *uint16) bool {
	if len(set) == 0 {
		return true
	}
	startLen := len(b.buf)
	cp := b.c.Checkpoint()

	for _, rr := range set {
		b.buf = EncodeRR(b.buf, rr, b.c)
	}
	if len(b.buf) > b.budget() {
		b.buf = b.buf[:startLen]
		b.c.Rollback(cp)
		return false
	}
	*count += uint16(len(set))
	return true
}

// AddAnswer attempts to append one RRSet to the ANSWER section. If it does
// not fit, TC is set and the section is left as it was (spec.md §4.4.2:
// "if the ANSWER section itself overflows, set TC and truncate to the
// last fully-written RRSet boundary").
func (b *Builder) AddAnswer(set RRSet) bool {
	if b.addSection(set, &b.anCount) {
		return true
	}
	b.truncated = true
	return false
}

// AddAuthority attempts to append one RRSet to the AUTHORITY section.
// Overflow here is dropped silently (no TC), whatever the RRSet; callers
// add the zone's SOA first so that it is not the RRSet that gets dropped.
func (b *Builder) AddAuthority(set RRSet) bool {
	return b.addSection(set, &b.nsCount)
}

// AddAdditional attempts to append one RRSet to the ADDITIONAL section.
// This is the first section spec.md §4.4.2 says to drop from under size
// pressure: "trailing RRSets are dropped RRSet-at-a-time from ADDITIONAL,
// then from AUTHORITY glue."
func (b *Builder) AddAdditional(set RRSet) bool {
	return b.addSection(set, &b.arCount)
}

// Truncated reports whether any section failed to fit and TC should be
// communicated to the caller (it is already reflected in the header bytes
// once Finish is called).
func (b *Builder) Truncated() bool {
	return b.truncated
}

// SetRcode overrides the response RCODE's low 4 bits.
func (b *Builder) SetRcode(rcode uint8) {
	b.header.Rcode = rcode
}

// SetAA sets or clears the AA bit.
func (b *Builder) SetAA(aa bool) {
	b.header.AA = aa
}

// Finish patches the header (counts, TC, RCODE) and returns the completed
// message bytes, with tsigReserve bytes still available at the tail for
// the caller (package tsig) to append a TSIG RR.
func (b *Builder) Finish() []byte {
	if b.truncated {
		b.header.TC = true
	}
	head := b.header.Encode(nil)
	SetCounts(head, b.header.QDCount, b.anCount, b.nsCount, b.arCount)
	copy(b.buf[:HeaderLen], head)
	return b.buf
}

// Compressor exposes the message's compression table so package tsig (or
// any other late section writer, such as AXFR streaming) can keep
// compressing against names already written in this message.
func (b *Builder) Compressor() *dname.Compressor {
	return b.c
}

// Len returns the current size of the assembled message, excluding the
// reserved TSIG footprint.
func (b *Builder) Len() int {
	return len(b.buf)
}

// Counts returns the current ANSWER/AUTHORITY/ADDITIONAL section sizes, for
// callers (rate limiting) that need to classify a response by shape before
// Finish is called.
func (b *Builder) Counts() (answer, authority, additional int) {
	return int(b.anCount), int(b.nsCount), int(b.arCount)
}

// SuppressTC clears a truncation flag recorded by a failed AddAnswer call.
// A streamed transfer's packet boundaries reflect how much fit in one TCP
// message, not UDP truncation, so the TC bit must stay clear even though
// the section-overflow machinery is the same one UDP truncation uses.
func (b *Builder) SuppressTC() {
	b.truncated = false
}

// AppendTSIG appends a TSIG RR to an already-Finished message and
// increments its ARCOUNT in place, spec.md §4.5: "On output, append the
// TSIG RR and increment ARCOUNT." c must be the same Compressor the
// message was built with, so the TSIG owner name can still compress
// against names already written.
func AppendTSIG(msg []byte, c *dname.Compressor, t RawTSIG) []byte {
	out := EncodeRR(msg, EncodeTSIG(t), c)
	ar := binary.BigEndian.Uint16(out[10:12])
	binary.BigEndian.PutUint16(out[10:12], ar+1)
	return out
}
