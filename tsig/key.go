// Package tsig implements transaction signature processing (RFC 2845):
// MAC computation and verification, BADSIG/BADTIME/BADKEY classification,
// and MAC chaining across a multi-message stream such as an AXFR. It
// operates entirely on package wire's RawTSIG and a caller-stripped
// message buffer; it has no dependency on the zone store or query
// processor.
package tsig

import (
	"encoding/base64"
	"strings"

	"github.com/sandpiper-dns/adns/dname"
)

// Algorithm name wire forms, RFC 4635 §2.
var (
	AlgHMACSHA1   = mustAlgo("hmac-sha1")
	AlgHMACSHA224 = mustAlgo("hmac-sha224")
	AlgHMACSHA256 = mustAlgo("hmac-sha256")
	AlgHMACSHA384 = mustAlgo("hmac-sha384")
	AlgHMACSHA512 = mustAlgo("hmac-sha512")
)

func mustAlgo(label string) dname.Name {
	n, err := dname.FromLabels([]string{label})
	if err != nil {
		panic(err)
	}
	return n
}

// Key is a configured TSIG key: its name (the key identity, carried as
// the RR owner), its algorithm, and its shared secret.
type Key struct {
	Name      dname.Name
	Algorithm dname.Name
	Secret    []byte
}

// NewKey builds a Key from configuration-shaped strings: a dotted key
// name, a dotted (or bare) algorithm mnemonic, and a base64-encoded
// secret — the same shapes the teacher's key configuration carries
// (spec.md §6: "A set of TSIG keys: name, algorithm, shared secret").
func NewKey(name, algorithm, secretBase64 string) (Key, error) {
	keyName, err := parseDotted(name)
	if err != nil {
		return Key{}, err
	}
	algoName, err := parseDotted(algorithm)
	if err != nil {
		return Key{}, err
	}
	secret, err := base64.StdEncoding.DecodeString(secretBase64)
	if err != nil {
		return Key{}, err
	}
	return Key{Name: keyName, Algorithm: algoName, Secret: secret}, nil
}

func parseDotted(s string) (dname.Name, error) {
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return dname.Root, nil
	}
	return dname.FromLabels(strings.Split(s, "."))
}

// KeyStore is a read-only-during-steady-state lookup table of configured
// keys, keyed by lowercased name (spec.md §5: "Key set and ACL: read-only
// during steady state; reload replaces them atomically").
type KeyStore struct {
	keys map[uint64]Key
}

// NewKeyStore builds a store from a list of keys.
func NewKeyStore(keys []Key) *KeyStore {
	s := &KeyStore{keys: make(map[uint64]Key, len(keys))}
	for _, k := range keys {
		s.keys[k.Name.Hash()] = k
	}
	return s
}

// Lookup finds a key by name, returning ok=false if none is configured
// (spec.md §4.5 step 1: "Locate the key by name in the configured key
// set; absence → BADKEY").
func (s *KeyStore) Lookup(name dname.Name) (Key, bool) {
	if s == nil {
		return Key{}, false
	}
	k, ok := s.keys[name.Hash()]
	if !ok || !k.Name.Equal(name) {
		return Key{}, false
	}
	return k, true
}
