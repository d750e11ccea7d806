package wire

import (
	"errors"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

var (
	ErrMultipleQuestions = errors.New("wire: more than one question")
	ErrMultipleOPT       = errors.New("wire: more than one OPT record")
	ErrMultipleTSIG      = errors.New("wire: more than one TSIG record")
	ErrTsigNotLast       = errors.New("wire: TSIG record is not the last additional record")
)

// Message is a fully decoded DNS message. OPT and TSIG pseudo-RRs are
// pulled out of Additional into dedicated fields, matching spec.md §4.2:
// "Recognized only in the ADDITIONAL section" / "Always the last RR in
// ADDITIONAL when present, and not counted toward EDNS option processing."
type Message struct {
	Header     Header
	Question   *Question
	Answer     []RR
	Authority  []RR
	Additional []RR
	OPT        *OPT
	TSIG       *RawTSIG

	// TSIGOffset is the byte offset where the TSIG RR begins in the
	// buffer ParseMessage was given, or -1 if there is none. Package tsig
	// uses it to reconstruct "the message wire with TSIG RR stripped and
	// ARCOUNT decremented" (spec.md §4.5) without re-serializing anything.
	TSIGOffset int
}

// ParseMessage decodes a complete DNS message. It enforces the structural
// rules of spec.md §4.2: at most one question, at most one OPT RR (owner
// root, in ADDITIONAL), at most one TSIG RR (last in ADDITIONAL).
func ParseMessage(msg []byte) (*Message, error) {
	h, err := DecodeHeader(msg)
	if err != nil {
		return nil, err
	}
	if h.QDCount > 1 {
		return nil, ErrMultipleQuestions
	}

	m := &Message{Header: h}
	pos := HeaderLen

	if h.QDCount == 1 {
		q, next, err := DecodeQuestion(msg, pos)
		if err != nil {
			return nil, err
		}
		m.Question = &q
		pos = next
	}

	m.Answer, pos, err = decodeRRList(msg, pos, int(h.ANCount))
	if err != nil {
		return nil, err
	}
	m.Authority, pos, err = decodeRRList(msg, pos, int(h.NSCount))
	if err != nil {
		return nil, err
	}

	m.TSIGOffset = -1
	count := int(h.ARCount)
	for i := 0; i < count; i++ {
		start := pos
		rr, next, err := DecodeRR(msg, pos)
		if err != nil {
			return nil, err
		}
		pos = next

		switch rr.Type {
		case rrtype.TypeOPT:
			if m.OPT != nil {
				return nil, ErrMultipleOPT
			}
			if !rr.Name.IsRoot() {
				return nil, ErrFormErr
			}
			opt := DecodeOPT(rr)
			m.OPT = &opt
		case rrtype.TypeTSIG:
			if m.TSIG != nil {
				return nil, ErrMultipleTSIG
			}
			if i != count-1 {
				return nil, ErrTsigNotLast
			}
			t, err := DecodeTSIG(rr)
			if err != nil {
				return nil, err
			}
			m.TSIG = &t
			m.TSIGOffset = start
		default:
			m.Additional = append(m.Additional, rr)
		}
	}

	return m, nil
}

func decodeRRList(msg []byte, pos, count int) ([]RR, int, error) {
	if count == 0 {
		return nil, pos, nil
	}
	rrs := make([]RR, 0, count)
	for i := 0; i < count; i++ {
		rr, next, err := DecodeRR(msg, pos)
		if err != nil {
			return nil, 0, err
		}
		rrs = append(rrs, rr)
		pos = next
	}
	return rrs, pos, nil
}

// QuestionName returns the message's question name, or dname.Root if the
// message carries no question (spec.md §4.2: "0 is accepted only for an
// error response").
func (m *Message) QuestionName() dname.Name {
	if m.Question == nil {
		return dname.Root
	}
	return m.Question.Name
}
