package tsig

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"hash"

	"github.com/sandpiper-dns/adns/dname"
)

var ErrUnsupportedAlgorithm = errors.New("tsig: unsupported algorithm")

func newHash(algo dname.Name) (func() hash.Hash, error) {
	switch {
	case algo.Equal(AlgHMACSHA1):
		return sha1.New, nil
	case algo.Equal(AlgHMACSHA224):
		return sha256.New224, nil
	case algo.Equal(AlgHMACSHA256):
		return sha256.New, nil
	case algo.Equal(AlgHMACSHA384):
		return sha512.New384, nil
	case algo.Equal(AlgHMACSHA512):
		return sha512.New, nil
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// variables encodes the TSIG "variables" input to the MAC, spec.md §4.5
// step 2c: "the TSIG variables (key name, class=ANY, TTL=0, algorithm,
// time-signed, fudge, error, other-data)".
func variables(keyName, algorithm dname.Name, timeSigned uint64, fudge, tsigError uint16, otherData []byte) []byte {
	var buf []byte
	buf = dname.AppendUncompressed(buf, keyName)
	var classTTL [8]byte
	binary.BigEndian.PutUint16(classTTL[0:2], 255) // CLASS ANY
	binary.BigEndian.PutUint32(classTTL[2:6], 0)    // TTL 0
	buf = append(buf, classTTL[:6]...)
	buf = dname.AppendUncompressed(buf, algorithm)

	var tb [10]byte
	binary.BigEndian.PutUint16(tb[0:2], uint16(timeSigned>>32))
	binary.BigEndian.PutUint32(tb[2:6], uint32(timeSigned))
	binary.BigEndian.PutUint16(tb[6:8], fudge)
	buf = append(buf, tb[:8]...)

	var eb [4]byte
	binary.BigEndian.PutUint16(eb[0:2], tsigError)
	binary.BigEndian.PutUint16(eb[2:4], uint16(len(otherData)))
	buf = append(buf, eb[:]...)
	buf = append(buf, otherData...)
	return buf
}

// computeMAC implements spec.md §4.5 step 2: the MAC covers, in order, any
// prior-message MAC (empty for the first/only message in a stream), the
// stripped message bytes, and the TSIG variables.
func computeMAC(algo dname.Name, secret, priorMAC, strippedMsg, vars []byte) ([]byte, error) {
	newH, err := newHash(algo)
	if err != nil {
		return nil, err
	}
	mac := hmac.New(newH, secret)
	if len(priorMAC) > 0 {
		var l [2]byte
		binary.BigEndian.PutUint16(l[:], uint16(len(priorMAC)))
		mac.Write(l[:])
		mac.Write(priorMAC)
	}
	mac.Write(strippedMsg)
	mac.Write(vars)
	return mac.Sum(nil), nil
}
