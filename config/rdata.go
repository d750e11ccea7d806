package config

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
)

// ParseRData converts a space-separated textual rdata (e.g. "192.0.2.1"
// for an A record, or `"v=spf1 -all"` for a TXT) into wire-format rdata
// bytes, driven by rrtype's field descriptor table — the structured
// configuration-file stand-in for the zone-file text parser spec.md §1
// explicitly excludes from the core. Types with no descriptor (RFC 3597
// unknowns) are given as a single hex token instead.
func ParseRData(rrtype_ uint16, text string) ([]byte, error) {
	desc, ok := rrtype.Lookup(rrtype_)
	if !ok {
		raw, err := hex.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return nil, fmt.Errorf("config: rdata for unknown type %d must be hex: %w", rrtype_, err)
		}
		return raw, nil
	}

	tokens := tokenizeRData(text)
	var out []byte
	for _, f := range desc.Fields {
		switch f.Kind {
		case rrtype.FieldCompressibleName, rrtype.FieldUncompressibleName:
			if len(tokens) == 0 {
				return nil, fmt.Errorf("config: rdata %q: missing %s", text, f.Name)
			}
			n, err := parseDottedName(tokens[0])
			if err != nil {
				return nil, fmt.Errorf("config: rdata %q field %s: %w", text, f.Name, err)
			}
			out = dname.AppendUncompressed(out, n)
			tokens = tokens[1:]

		case rrtype.FieldUint8:
			v, tail, err := popUint(tokens, 8)
			if err != nil {
				return nil, fmt.Errorf("config: rdata %q field %s: %w", text, f.Name, err)
			}
			out = append(out, byte(v))
			tokens = tail

		case rrtype.FieldUint16:
			v, tail, err := popUint(tokens, 16)
			if err != nil {
				return nil, fmt.Errorf("config: rdata %q field %s: %w", text, f.Name, err)
			}
			var b [2]byte
			binary.BigEndian.PutUint16(b[:], uint16(v))
			out = append(out, b[:]...)
			tokens = tail

		case rrtype.FieldUint32:
			v, tail, err := popUint(tokens, 32)
			if err != nil {
				return nil, fmt.Errorf("config: rdata %q field %s: %w", text, f.Name, err)
			}
			var b [4]byte
			binary.BigEndian.PutUint32(b[:], uint32(v))
			out = append(out, b[:]...)
			tokens = tail

		case rrtype.FieldIPv4:
			if len(tokens) == 0 {
				return nil, fmt.Errorf("config: rdata %q: missing %s", text, f.Name)
			}
			ip := net.ParseIP(tokens[0]).To4()
			if ip == nil {
				return nil, fmt.Errorf("config: rdata %q: %q is not an IPv4 address", text, tokens[0])
			}
			out = append(out, ip...)
			tokens = tokens[1:]

		case rrtype.FieldIPv6:
			if len(tokens) == 0 {
				return nil, fmt.Errorf("config: rdata %q: missing %s", text, f.Name)
			}
			ip := net.ParseIP(tokens[0]).To16()
			if ip == nil {
				return nil, fmt.Errorf("config: rdata %q: %q is not an IPv6 address", text, tokens[0])
			}
			out = append(out, ip...)
			tokens = tokens[1:]

		case rrtype.FieldCharString:
			if len(tokens) == 0 {
				return nil, fmt.Errorf("config: rdata %q: missing %s", text, f.Name)
			}
			out = appendCharString(out, tokens[0])
			tokens = tokens[1:]

		case rrtype.FieldCharStringList:
			for _, t := range tokens {
				out = appendCharString(out, t)
			}
			tokens = nil

		case rrtype.FieldOpaqueRemaining:
			joined := strings.Join(tokens, "")
			raw, err := hex.DecodeString(joined)
			if err != nil {
				return nil, fmt.Errorf("config: rdata %q field %s must be hex: %w", text, f.Name, err)
			}
			out = append(out, raw...)
			tokens = nil
		}
	}
	return out, nil
}

func popUint(tokens []string, bits int) (uint64, []string, error) {
	if len(tokens) == 0 {
		return 0, nil, fmt.Errorf("missing integer field")
	}
	v, err := strconv.ParseUint(tokens[0], 10, bits)
	if err != nil {
		return 0, nil, err
	}
	return v, tokens[1:], nil
}

func appendCharString(out []byte, s string) []byte {
	s = strings.Trim(s, `"`)
	out = append(out, byte(len(s)))
	return append(out, s...)
}

// tokenizeRData splits rdata text on whitespace, keeping double-quoted
// substrings (TXT-style character strings) as single tokens.
func tokenizeRData(text string) []string {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range text {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case !inQuote && (r == ' ' || r == '\t'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
