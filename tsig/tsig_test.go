package tsig

import (
	"testing"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
)

func mustKey(t *testing.T) Key {
	t.Helper()
	k, err := NewKey("testkey.", "hmac-sha256.", "cGFzc3dvcmQtc2VjcmV0LWJ5dGVzIQ==")
	if err != nil {
		t.Fatalf("NewKey: %v", err)
	}
	return k
}

func buildSignedQuery(t *testing.T, key Key, now uint64) []byte {
	t.Helper()
	h := wire.Header{ID: 42, Opcode: wire.OpcodeQuery, RD: true, QDCount: 1}
	qname, _ := dname.FromLabels([]string{"example", "com"})
	buf := h.Encode(nil)
	buf = wire.EncodeQuestion(buf, wire.Question{Name: qname, QType: rrtype.TypeA, QClass: rrtype.ClassINET}, nil)

	signer := &Session{Key: key}
	vars := variables(key.Name, key.Algorithm, now, 300, 0, nil)
	mac, err := computeMAC(key.Algorithm, key.Secret, nil, buf, vars)
	if err != nil {
		t.Fatalf("computeMAC: %v", err)
	}
	_ = signer
	rawTSIG := wire.RawTSIG{
		Name: key.Name, Algorithm: key.Algorithm, TimeSigned: now, Fudge: 300,
		MAC: mac, OriginalID: 42,
	}
	rr := wire.EncodeTSIG(rawTSIG)
	tsigStart := len(buf)
	buf = wire.EncodeRR(buf, rr, dname.NewCompressor())
	wire.SetCounts(buf, 1, 0, 0, 1)
	_ = tsigStart
	return buf
}

func TestVerifyAcceptsValidMAC(t *testing.T) {
	key := mustKey(t)
	now := uint64(1700000000)
	buf := buildSignedQuery(t, key, now)

	m, err := wire.ParseMessage(buf)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	if m.TSIG == nil {
		t.Fatalf("expected TSIG to be parsed")
	}

	store := NewKeyStore([]Key{key})
	sess, outcome := NewSession(store, m.TSIG.Name)
	if outcome != OK {
		t.Fatalf("NewSession outcome = %v", outcome)
	}
	if got := sess.Verify(buf, m, now); got != OK {
		t.Fatalf("Verify = %v, want OK", got)
	}
}

func TestVerifyRejectsBadTime(t *testing.T) {
	key := mustKey(t)
	signedAt := uint64(1700000000)
	buf := buildSignedQuery(t, key, signedAt)

	m, err := wire.ParseMessage(buf)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	store := NewKeyStore([]Key{key})
	sess, _ := NewSession(store, m.TSIG.Name)

	farFuture := signedAt + 10000
	if got := sess.Verify(buf, m, farFuture); got != BadTime {
		t.Fatalf("Verify = %v, want BadTime", got)
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	key := mustKey(t)
	now := uint64(1700000000)
	buf := buildSignedQuery(t, key, now)
	buf[HeaderIDByteForTest()] ^= 0xFF // corrupt the transaction ID after signing

	m, err := wire.ParseMessage(buf)
	if err != nil {
		t.Fatalf("ParseMessage: %v", err)
	}
	store := NewKeyStore([]Key{key})
	sess, _ := NewSession(store, m.TSIG.Name)
	if got := sess.Verify(buf, m, now); got != BadSig {
		t.Fatalf("Verify = %v, want BadSig", got)
	}
}

// HeaderIDByteForTest returns an offset inside the header safe to flip for
// tamper tests (byte 0 of the 2-byte ID field).
func HeaderIDByteForTest() int { return 0 }
