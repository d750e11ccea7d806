// Package server implements the query processor: a per-transaction state
// machine that turns an inbound DNS message into one or more outbound
// wire chunks, dispatching by OPCODE/QTYPE into normal answers, zone
// transfers, dynamic updates, NOTIFY handling, and CHAOS queries.
// Grounded on the teacher's tdns/do53.go dispatch shape and
// tdns/updateresponder.go-style UPDATE handling, rebuilt atop this
// repository's own wire/zone/tsig/rrl packages rather than miekg/dns.
package server

// State is one of the four states spec.md §4.4 assigns a transaction:
// AwaitQuery, Producing, Done, Failed.
type State uint8

const (
	AwaitQuery State = iota
	Producing
	Done
	Failed
)

// ConsumeResult is the outcome of feeding bytes to a transaction's
// Consume step.
type ConsumeResult uint8

const (
	// ConsumeFull indicates a complete message was parsed and the
	// transaction has moved to Producing.
	ConsumeFull ConsumeResult = iota
	// ConsumeMore indicates the transport should read more bytes before
	// calling Consume again. This implementation's transports always
	// hand Consume a complete datagram or length-prefixed TCP message,
	// so ConsumeMore is never currently returned; it is kept so a future
	// streaming-read transport (partial TCP reads) has somewhere to
	// signal into without changing this type's shape.
	ConsumeMore
	// ConsumeNoOp indicates the input required no processing (an empty
	// read).
	ConsumeNoOp
)

// ProduceResult is the outcome of one Produce call.
type ProduceResult uint8

const (
	// ProduceFull indicates a chunk was written and more chunks follow
	// (streamed transfers).
	ProduceFull ProduceResult = iota
	// ProduceDone indicates the chunk just written is the last one.
	ProduceDone
	// ProduceFail indicates an internal failure; the transaction is now
	// Failed and finish() should still be called.
	ProduceFail
)

// path classifies a transaction after question parse, spec.md §4.4.1.
type path uint8

const (
	pathNormal path = iota
	pathAxfr
	pathIxfr
	pathChaos
	pathNotify
	pathUpdate
	pathRefused
	pathNotImplemented
	pathFormErr
)
