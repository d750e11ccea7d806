package server

import (
	"errors"
	"net"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrl"
	"github.com/sandpiper-dns/adns/tsig"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

var errNotReady = errors.New("server: Produce called before a successful Consume")

// Transaction is one query's pass through spec.md §4.4's four-state
// machine: Begin moves it to AwaitQuery, Consume parses and evaluates the
// request (dispatch, ACL, TSIG, the actual zone lookup), Produce emits
// response chunks — exactly one for ordinary answers, a stream for
// AXFR/IXFR — and Finish releases it. Grounded on the dispatch shape of
// the teacher's tdns/do53.go createAuthDnsHandler, rebuilt as an explicit
// state machine over this repository's own wire/zone/tsig/rrl packages. A
// Transaction is single-threaded; Reset clears it for the next request on
// the same connection, and it is never reused across connections.
type Transaction struct {
	p   *Processor
	src net.Addr
	udp bool

	state State

	reqID    uint16
	question *wire.Question
	reqOPT   *wire.OPT
	doBit    bool

	haveTSIG       bool
	tsigOK         bool
	haveTSIGErr    bool
	tsigErrOutcome tsig.Outcome
	keyName        dname.Name
	session        *tsig.Session
	reqTSIG        wire.RawTSIG

	payload int

	builder *wire.Builder // set for single-packet paths
	rcode   uint8

	xfer *xferStream // set for AXFR/IXFR paths
}

// NewTransaction builds a Transaction against a shared Processor. src and
// udp identify the request's origin and transport, which spec.md §4.4.5's
// ACL and the rate limiter both key decisions off.
func NewTransaction(p *Processor, src net.Addr, udp bool) *Transaction {
	return &Transaction{p: p, src: src, udp: udp}
}

// State reports the transaction's current state.
func (t *Transaction) State() State {
	return t.state
}

// Begin moves the transaction to AwaitQuery, spec.md §4.4's entry state.
func (t *Transaction) Begin() {
	t.state = AwaitQuery
}

// Reset clears a transaction's per-request state so it can be reused for
// another request on the same connection (spec.md §4.4: persistent TCP
// connections run one transaction after another). src/udp and the
// Processor are retained; everything parsed from the prior request is
// dropped.
func (t *Transaction) Reset() {
	*t = Transaction{p: t.p, src: t.src, udp: t.udp}
}

// Finish releases the transaction. Nothing in this implementation needs
// explicit teardown, but the method exists so callers have a single place
// to call at the end of a transaction's life regardless of which path it
// took, matching spec.md §4.4's state diagram.
func (t *Transaction) Finish() {
	t.state = Done
}

// Consume parses and fully evaluates one request. On success the
// transaction moves to Producing and one or more chunks are ready via
// Produce; on a request so malformed no response can be built at all
// (the header itself doesn't decode), it moves to Failed instead.
func (t *Transaction) Consume(raw []byte) (ConsumeResult, error) {
	if len(raw) == 0 {
		return ConsumeNoOp, nil
	}

	h, err := wire.DecodeHeader(raw)
	if err != nil {
		t.state = Failed
		return ConsumeFull, err
	}
	t.reqID = h.ID

	m, err := wire.ParseMessage(raw)
	if err != nil {
		t.respondError(h, nil, wire.RcodeFormErr)
		return ConsumeFull, nil
	}
	t.question = m.Question

	if m.OPT != nil {
		t.reqOPT = m.OPT
		t.doBit = m.OPT.DO
		if m.OPT.Version > 0 {
			t.respondError(h, m.Question, wire.RcodeBadVers)
			return ConsumeFull, nil
		}
	}
	t.payload = negotiatedPayload(m.OPT, t.p.ServerMaxUDPPayload)

	if m.TSIG != nil {
		t.haveTSIG = true
		t.reqTSIG = *m.TSIG
		t.keyName = m.TSIG.Name
		session, outcome := tsig.NewSession(t.p.Keys, m.TSIG.Name)
		if outcome == tsig.OK {
			outcome = session.Verify(raw, m, uint64(t.p.Now().Unix()))
		}
		t.session = session
		t.tsigOK = outcome == tsig.OK
		if !t.tsigOK {
			t.respondTSIGError(h, m, outcome)
			return ConsumeFull, nil
		}
	}

	path := classify(m.Header, m.Question)
	qname := m.QuestionName()
	var qtype, qclass uint16
	if m.Question != nil {
		qtype, qclass = m.Question.QType, m.Question.QClass
	}
	snapshot := t.p.DB.Snapshot()

	switch path {
	case pathFormErr:
		t.respondError(h, m.Question, wire.RcodeFormErr)

	case pathChaos:
		b := t.newBuilder(h, m.Question)
		rcode := t.p.answerChaos(b, qname, qtype)
		t.setSingle(b, rcode)

	case pathNotImplemented:
		t.respondError(h, m.Question, wire.RcodeNotImp)

	case pathNormal:
		z, ok := zone.Lookup(snapshot, qname)
		if !ok {
			t.respondError(h, m.Question, wire.RcodeRefused)
			break
		}
		b := t.newBuilder(h, m.Question)
		rcode := t.p.answerNormal(b, z, qname, qtype, qclass, t.doBit)
		t.setSingle(b, rcode)

	case pathNotify:
		z, ok := zone.Lookup(snapshot, qname)
		if !ok {
			t.respondError(h, m.Question, wire.RcodeRefused)
			break
		}
		if rcode, ok := t.checkACL(z.Apex, func(p *ZonePolicy) ACL { return p.NotifyACL }); !ok {
			t.respondError(h, m.Question, rcode)
			break
		}
		b := t.newBuilder(h, m.Question)
		b.SetAA(true)
		t.setSingle(b, wire.RcodeNoError)

	case pathUpdate:
		z, ok := zone.Lookup(snapshot, qname)
		if !ok {
			t.respondError(h, m.Question, wire.RcodeRefused)
			break
		}
		if rcode, ok := t.checkACL(z.Apex, func(p *ZonePolicy) ACL { return p.UpdateACL }); !ok {
			t.respondError(h, m.Question, rcode)
			break
		}
		rcode := t.applyUpdate(z, m)
		b := t.newBuilder(h, m.Question)
		t.setSingle(b, rcode)

	case pathAxfr, pathIxfr:
		z, ok := zone.Lookup(snapshot, qname)
		if !ok {
			t.respondError(h, m.Question, wire.RcodeRefused)
			break
		}
		if rcode, ok := t.checkACL(z.Apex, func(p *ZonePolicy) ACL { return p.XferACL }); !ok {
			t.respondError(h, m.Question, rcode)
			break
		}
		t.beginXfer(z, path, m)

	default: // pathRefused
		t.respondError(h, m.Question, wire.RcodeRefused)
	}

	return ConsumeFull, nil
}

func (t *Transaction) setSingle(b *wire.Builder, rcode uint8) {
	t.builder = b
	t.rcode = rcode
	t.state = Producing
}

func (t *Transaction) newBuilder(h wire.Header, q *wire.Question) *wire.Builder {
	header := wire.Header{ID: h.ID, QR: true, Opcode: h.Opcode, RD: h.RD}
	reserve := 0
	if t.haveTSIG {
		reserve = tsigReserveFor(t.reqTSIG.Name, t.reqTSIG.Algorithm)
	}
	b := wire.NewBuilder(header, t.payload, reserve)
	b.WriteQuestion(q)
	return b
}

func (t *Transaction) respondError(h wire.Header, q *wire.Question, rcode uint8) {
	t.setSingle(t.newBuilder(h, q), rcode)
}

// respondTSIGError builds the NOTAUTH response spec.md §4.5 requires for a
// failed verification, carrying the appropriate extended TSIG RCODE
// (BADKEY/BADSIG/BADTIME) with an empty MAC — the client has no way to
// validate a real one anyway, and for BADKEY the key itself is unknown so
// there is nothing to sign with.
func (t *Transaction) respondTSIGError(h wire.Header, m *wire.Message, outcome tsig.Outcome) {
	t.setSingle(t.newBuilder(h, m.Question), wire.RcodeNotAuth)
	t.haveTSIGErr = true
	t.tsigErrOutcome = outcome
}

// beginXfer lays out the AXFR or IXFR content to stream and moves the
// transaction into its multi-packet Produce phase.
func (t *Transaction) beginXfer(z *zone.Zone, xferPath path, m *wire.Message) {
	var queue []wire.RRSet
	switch {
	case xferPath == pathAxfr:
		queue = buildAxfrStream(z)
	default:
		from, ok := ixfrRequestSerial(m.Authority)
		if !ok {
			t.respondError(m.Header, m.Question, wire.RcodeFormErr)
			return
		}
		if diffs, ok := z.GenerateIXFR(from); ok {
			queue = buildIxfrStream(z, diffs)
		} else {
			queue = buildAxfrStream(z) // spec.md §9: fall back to AXFR when history doesn't reach far enough back
		}
	}
	t.xfer = &xferStream{queue: queue}
	t.state = Producing
}

func (t *Transaction) checkACL(apex dname.Name, pick func(*ZonePolicy) ACL) (uint8, bool) {
	acl := pick(t.p.policyFor(apex))
	entry, matched := acl.Match(t.src)
	if !matched {
		return wire.RcodeNotAuth, false
	}
	if !entry.Satisfied(t.keyName, t.tsigOK) {
		return wire.RcodeNotAuth, false
	}
	return wire.RcodeNoError, true
}

func (t *Transaction) applyUpdate(z *zone.Zone, m *wire.Message) uint8 {
	if rcode := checkPrerequisites(z, m.Answer); rcode != wire.RcodeNoError {
		return rcode
	}
	changes, rcode := buildChangeset(z, z.Apex, m.Authority)
	if rcode != wire.RcodeNoError {
		return rcode
	}
	nz, _, err := zone.Apply(z, changes)
	if err != nil {
		return wire.RcodeRefused
	}
	t.p.DB.Publish(nz)
	return wire.RcodeNoError
}

// Produce returns the next response chunk. For every path but AXFR/IXFR
// this is a single call that applies rate limiting, EDNS/TSIG framing and
// returns ProduceDone; for AXFR/IXFR it is called repeatedly until the
// queued content is exhausted. maxSize caps each AXFR/IXFR packet (a
// transport-supplied ceiling, since TCP itself bounds a message only by
// its 16-bit length prefix); single-packet responses were already built
// against the payload size negotiated from the request's EDNS OPT during
// Consume, so maxSize has no further effect on them.
func (t *Transaction) Produce(maxSize int) ([]byte, ProduceResult, error) {
	switch t.state {
	case Failed:
		return nil, ProduceFail, nil
	case Producing:
		if t.xfer != nil {
			return t.produceXfer(maxSize)
		}
		return t.produceSingle()
	default:
		return nil, ProduceFail, errNotReady
	}
}

func (t *Transaction) produceSingle() ([]byte, ProduceResult, error) {
	b := t.builder
	an, ns, _ := b.Counts()
	tuple := rrl.ResponseTuple{
		Category: rrl.NewAllowanceCategory(t.rcode, an, ns),
	}
	if t.question != nil {
		tuple.Type = t.question.QType
		tuple.Class = t.question.QClass
		tuple.SalientName = t.question.Name.String()
	}

	if t.p.RateLimit != nil {
		action, _, _ := t.p.RateLimit.Debit(t.src, t.udp, tuple, t.p.Now())
		switch action {
		case rrl.Drop:
			t.state = Done
			return nil, ProduceDone, nil
		case rrl.Slip:
			t.state = Done
			return t.finishSlip(), ProduceDone, nil
		}
	}

	t.state = Done
	return t.finish(b, t.rcode), ProduceDone, nil
}

// finishSlip builds a bare, truncated response (header plus question
// only, TC set) in place of the real answer, spec.md's rate-limiting
// "slip" action: enough for a legitimate resolver to retry over TCP,
// without spending bytes on an answer an abuser is probably spoofing.
func (t *Transaction) finishSlip() []byte {
	header := wire.Header{ID: t.reqID, QR: true, TC: true, Rcode: t.rcode & 0x0F}
	b := wire.NewBuilder(header, t.payload, 0)
	b.WriteQuestion(t.question)
	return b.Finish()
}

func (t *Transaction) finish(b *wire.Builder, rcode uint8) []byte {
	if t.reqOPT != nil {
		opt := wire.OPT{UDPSize: uint16(t.p.ServerMaxUDPPayload), DO: t.doBit, ExtendedRcode: rcode >> 4}
		b.AddAdditional(wire.RRSet{wire.EncodeOPT(opt, rcode>>4)})
	}
	b.SetRcode(rcode & 0x0F)
	resp := b.Finish()

	switch {
	case t.haveTSIGErr:
		resp = wire.AppendTSIG(resp, b.Compressor(), t.tsigErrorRR())
	case t.haveTSIG && t.session != nil:
		now := uint64(t.p.Now().Unix())
		rr, err := t.session.Sign(resp, t.reqID, now, t.p.TSIGFudge, tsig.OK.ErrorRcode())
		if err == nil {
			resp = wire.AppendTSIG(resp, b.Compressor(), rr)
		}
	}
	return resp
}

// tsigErrorRR builds the response TSIG RR for a verification failure
// (spec.md §4.5): an empty MAC, since the client has no key or no valid
// MAC to check one against, and for BADTIME the request's own time_signed
// echoed back so the client can resynchronize its clock.
func (t *Transaction) tsigErrorRR() wire.RawTSIG {
	now := uint64(t.p.Now().Unix())
	timeSigned := now
	if t.tsigErrOutcome == tsig.BadTime {
		timeSigned = t.reqTSIG.TimeSigned
	}
	return wire.RawTSIG{
		Name:       t.reqTSIG.Name,
		Algorithm:  t.reqTSIG.Algorithm,
		TimeSigned: timeSigned,
		Fudge:      t.p.TSIGFudge,
		OriginalID: t.reqID,
		Error:      t.tsigErrOutcome.ErrorRcode(),
	}
}

func (t *Transaction) produceXfer(maxSize int) ([]byte, ProduceResult, error) {
	x := t.xfer
	first := x.packets == 0

	budget := tcpPacketBudget
	if maxSize > 0 && maxSize < budget {
		budget = maxSize
	}
	header := wire.Header{ID: t.reqID, QR: true, AA: true, Opcode: wire.OpcodeQuery}
	reserve := 0
	if t.haveTSIG {
		reserve = tsigReserveFor(t.reqTSIG.Name, t.reqTSIG.Algorithm)
	}
	b := wire.NewBuilder(header, budget, reserve)
	b.WriteQuestion(t.question)
	x.next(b)
	last := x.done()

	resp := b.Finish()

	if t.haveTSIG && t.session != nil && (first || last || x.packets%100 == 0) {
		now := uint64(t.p.Now().Unix())
		rr, err := t.session.Sign(resp, t.reqID, now, t.p.TSIGFudge, tsig.OK.ErrorRcode())
		if err == nil {
			resp = wire.AppendTSIG(resp, b.Compressor(), rr)
		}
	}

	if last {
		t.state = Done
		return resp, ProduceDone, nil
	}
	return resp, ProduceFull, nil
}

// tcpPacketBudget is the per-message size a streamed transfer packs
// toward: AXFR/IXFR always run over TCP, so the only real ceiling is the
// 16-bit TCP length prefix, not spec.md §4.4.2's UDP response-size cap.
const tcpPacketBudget = 65535

// tsigReserveFor computes the byte footprint a TSIG RR with this key name
// and algorithm will need, so the Builder can stop packing content before
// there's no room left for it (spec.md §4.2: "a reserved trailing
// footprint for TSIG"). Computed from the request's own TSIG fields
// rather than a resolved Session's Key, since an unresolvable key
// (BADKEY) still needs a reserve for the error TSIG RR that echoes it.
func tsigReserveFor(name, algo dname.Name) int {
	return len(name.Wire()) + 10 + len(algo.Wire()) + 10 + macLenFor(algo) + 6
}

func macLenFor(algo dname.Name) int {
	switch {
	case algo.Equal(tsig.AlgHMACSHA1):
		return 20
	case algo.Equal(tsig.AlgHMACSHA224):
		return 28
	case algo.Equal(tsig.AlgHMACSHA256):
		return 32
	case algo.Equal(tsig.AlgHMACSHA384):
		return 48
	case algo.Equal(tsig.AlgHMACSHA512):
		return 64
	default:
		return 64
	}
}
