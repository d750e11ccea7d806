package tsig

import (
	"crypto/subtle"
	"errors"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/wire"
)

// Outcome classifies the result of verifying an inbound TSIG, mapping
// directly to spec.md §4.5 and §6's extended RCODEs.
type Outcome uint8

const (
	OK Outcome = iota
	BadKey
	BadSig
	BadTime
)

var ErrNoTSIG = errors.New("tsig: message carries no TSIG record")

// Session carries the per-transaction state needed to chain MACs across a
// multi-packet response stream (spec.md §4.5: "for multi-packet streams
// chain each MAC as input to the next") and to verify/sign using one
// resolved key.
type Session struct {
	Key      Key
	priorMAC []byte // nil before the first message; set after each sign/verify
}

// NewSession resolves the key named by an inbound TSIG RR against store.
// It returns a nil Session and BadKey if no such key is configured.
func NewSession(store *KeyStore, keyName dname.Name) (*Session, Outcome) {
	k, found := store.Lookup(keyName)
	if !found {
		return nil, BadKey
	}
	return &Session{Key: k}, OK
}

// Verify checks an inbound message's TSIG RR against s's key, per spec.md
// §4.5 steps 1-4. raw is the complete original request bytes; m is its
// already-parsed form (for TSIGOffset and the TSIG fields). now is the
// current time as a 48-bit UNIX timestamp.
func (s *Session) Verify(raw []byte, m *wire.Message, now uint64) Outcome {
	if m.TSIG == nil {
		return BadKey
	}
	t := m.TSIG
	if !t.Algorithm.Equal(s.Key.Algorithm) {
		return BadKey
	}

	stripped := wire.StripTSIG(raw, m.TSIGOffset)
	vars := variables(t.Name, t.Algorithm, t.TimeSigned, t.Fudge, t.Error, t.OtherData)
	want, err := computeMAC(s.Key.Algorithm, s.Key.Secret, s.priorMAC, stripped, vars)
	if err != nil {
		return BadKey
	}

	if subtle.ConstantTimeCompare(want, t.MAC) != 1 {
		return BadSig
	}

	var delta uint64
	if now > t.TimeSigned {
		delta = now - t.TimeSigned
	} else {
		delta = t.TimeSigned - now
	}
	if delta > uint64(t.Fudge) {
		return BadTime
	}

	s.priorMAC = t.MAC
	return OK
}

// Sign computes a TSIG RR for an outgoing message and records its MAC for
// chaining into the next message in the stream, if any. strippedResponse
// is the response bytes as they will be sent, excluding the TSIG RR
// itself (i.e. what a Builder.Finish() returns before TSIG is appended).
func (s *Session) Sign(strippedResponse []byte, originalID uint16, now uint64, fudge uint16, tsigError uint16) (wire.RawTSIG, error) {
	var otherData []byte
	vars := variables(s.Key.Name, s.Key.Algorithm, now, fudge, tsigError, otherData)
	mac, err := computeMAC(s.Key.Algorithm, s.Key.Secret, s.priorMAC, strippedResponse, vars)
	if err != nil {
		return wire.RawTSIG{}, err
	}
	s.priorMAC = mac
	return wire.RawTSIG{
		Name:       s.Key.Name,
		Algorithm:  s.Key.Algorithm,
		TimeSigned: now,
		Fudge:      fudge,
		MAC:        mac,
		OriginalID: originalID,
		Error:      tsigError,
		OtherData:  otherData,
	}, nil
}

// ErrorTSIG builds the TSIG RR for a verification-failure response: an
// empty MAC (the client has no way to validate one anyway) and, for
// BadTime, the request's own TimeSigned echoed back so the client can
// resynchronize its clock (spec.md §4.5: "outside → BADTIME, with
// time_signed preserved for the response").
func (s *Session) ErrorTSIG(reqTSIG wire.RawTSIG, outcome Outcome, now uint64, fudge uint16) wire.RawTSIG {
	timeSigned := now
	if outcome == BadTime {
		timeSigned = reqTSIG.TimeSigned
	}
	return wire.RawTSIG{
		Name:       s.Key.Name,
		Algorithm:  reqTSIG.Algorithm,
		TimeSigned: timeSigned,
		Fudge:      fudge,
		MAC:        nil,
		OriginalID: reqTSIG.OriginalID,
		Error:      outcome.ErrorRcode(),
	}
}

// ErrorRcode maps an Outcome to the extended TSIG RCODE spec.md §6 and §4.5
// require it surface as.
func (o Outcome) ErrorRcode() uint16 {
	switch o {
	case BadKey:
		return wire.TsigErrBadKey
	case BadSig:
		return wire.TsigErrBadSig
	case BadTime:
		return wire.TsigErrBadTime
	default:
		return wire.TsigErrNoError
	}
}
