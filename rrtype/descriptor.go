// Package rrtype holds the static RR type descriptor table: for every
// known RR type, the sequence of rdata fields and which of them are
// compressible names, uncompressible names, fixed-width integers, or
// opaque byte runs. The wire codec (package wire) and the zone store
// (package zone) both consult this table instead of hand-rolling rdata
// layout knowledge per call site.
package rrtype

// Well-known RR types (numeric values mirror github.com/miekg/dns's
// constants so wire captures stay interoperable with it in tests).
const (
	TypeA          uint16 = 1
	TypeNS         uint16 = 2
	TypeCNAME      uint16 = 5
	TypeSOA        uint16 = 6
	TypePTR        uint16 = 12
	TypeHINFO      uint16 = 13
	TypeMX         uint16 = 15
	TypeTXT        uint16 = 16
	TypeRP         uint16 = 17
	TypeAAAA       uint16 = 28
	TypeSRV        uint16 = 33
	TypeNAPTR      uint16 = 35
	TypeOPT        uint16 = 41
	TypeDS         uint16 = 43
	TypeSSHFP      uint16 = 44
	TypeRRSIG      uint16 = 46
	TypeNSEC       uint16 = 47
	TypeDNSKEY     uint16 = 48
	TypeNSEC3      uint16 = 50
	TypeNSEC3PARAM uint16 = 51
	TypeTLSA       uint16 = 52
	TypeCDS        uint16 = 59
	TypeCDNSKEY    uint16 = 60
	TypeCSYNC      uint16 = 62
	TypeZONEMD     uint16 = 63
	TypeSVCB       uint16 = 64
	TypeHTTPS      uint16 = 65
	TypeSPF        uint16 = 99
	TypeTSIG       uint16 = 250
	TypeIXFR       uint16 = 251
	TypeAXFR       uint16 = 252
	TypeANY        uint16 = 255
	TypeCAA        uint16 = 257
)

// Classes.
const (
	ClassINET uint16 = 1
	ClassCH   uint16 = 3
	ClassNONE uint16 = 254
	ClassANY  uint16 = 255
)

// FieldKind enumerates the rdata field shapes the wire codec needs to know
// about to parse/serialize a field and to decide whether it participates
// in name compression.
type FieldKind uint8

const (
	// FieldCompressibleName is a domain name eligible for output
	// compression (e.g. NS target, MX exchange, CNAME/PTR target).
	FieldCompressibleName FieldKind = iota
	// FieldUncompressibleName is a domain name that MUST be emitted in
	// full even when compression is in use (e.g. inside SOA per RFC
	// 1035, or anywhere RFC 3597 / DNSSEC semantics forbid compression).
	FieldUncompressibleName
	FieldUint8
	FieldUint16
	FieldUint32
	FieldIPv4
	FieldIPv6
	// FieldCharStringList consumes length-prefixed character-strings
	// (1-byte length + data) until rdata is exhausted (TXT, SPF).
	FieldCharStringList
	// FieldCharString consumes a single length-prefixed character-string.
	FieldCharString
	// FieldOpaqueRemaining consumes whatever bytes remain in rdata
	// verbatim (RRSIG signature, DNSKEY public key, raw bitmaps, ...).
	FieldOpaqueRemaining
)

// Field describes one rdata field in wire order.
type Field struct {
	Kind FieldKind
	Name string
}

// Descriptor is the complete rdata shape for one RR type.
type Descriptor struct {
	Type   uint16
	Name   string
	Fields []Field
	// AdditionalTriggering marks types whose compressible name field(s)
	// should be resolved to in-zone address records and placed in the
	// ADDITIONAL section (spec.md §4.4.2 step 4): NS, MX, SRV, PTR-like.
	AdditionalTriggering bool
}

var table = map[uint16]Descriptor{
	TypeA: {Type: TypeA, Name: "A", Fields: []Field{{FieldIPv4, "Address"}}},
	TypeNS: {Type: TypeNS, Name: "NS", AdditionalTriggering: true,
		Fields: []Field{{FieldCompressibleName, "Nsdname"}}},
	TypeCNAME: {Type: TypeCNAME, Name: "CNAME",
		Fields: []Field{{FieldCompressibleName, "Target"}}},
	TypeSOA: {Type: TypeSOA, Name: "SOA", Fields: []Field{
		{FieldUncompressibleName, "Mname"},
		{FieldUncompressibleName, "Rname"},
		{FieldUint32, "Serial"},
		{FieldUint32, "Refresh"},
		{FieldUint32, "Retry"},
		{FieldUint32, "Expire"},
		{FieldUint32, "Minimum"},
	}},
	TypePTR: {Type: TypePTR, Name: "PTR", AdditionalTriggering: true,
		Fields: []Field{{FieldCompressibleName, "Ptrdname"}}},
	TypeHINFO: {Type: TypeHINFO, Name: "HINFO", Fields: []Field{
		{FieldCharString, "Cpu"},
		{FieldCharString, "Os"},
	}},
	TypeMX: {Type: TypeMX, Name: "MX", AdditionalTriggering: true, Fields: []Field{
		{FieldUint16, "Preference"},
		{FieldCompressibleName, "Exchange"},
	}},
	TypeTXT: {Type: TypeTXT, Name: "TXT", Fields: []Field{{FieldCharStringList, "Txt"}}},
	TypeSPF: {Type: TypeSPF, Name: "SPF", Fields: []Field{{FieldCharStringList, "Txt"}}},
	TypeRP: {Type: TypeRP, Name: "RP", Fields: []Field{
		{FieldUncompressibleName, "Mbox"},
		{FieldUncompressibleName, "Txt"},
	}},
	TypeAAAA: {Type: TypeAAAA, Name: "AAAA", Fields: []Field{{FieldIPv6, "Address"}}},
	TypeSRV: {Type: TypeSRV, Name: "SRV", AdditionalTriggering: true, Fields: []Field{
		{FieldUint16, "Priority"},
		{FieldUint16, "Weight"},
		{FieldUint16, "Port"},
		{FieldUncompressibleName, "Target"},
	}},
	TypeNAPTR: {Type: TypeNAPTR, Name: "NAPTR", Fields: []Field{
		{FieldUint16, "Order"},
		{FieldUint16, "Preference"},
		{FieldCharString, "Flags"},
		{FieldCharString, "Service"},
		{FieldCharString, "Regexp"},
		{FieldUncompressibleName, "Replacement"},
	}},
	TypeDS: {Type: TypeDS, Name: "DS", Fields: []Field{
		{FieldUint16, "KeyTag"},
		{FieldUint8, "Algorithm"},
		{FieldUint8, "DigestType"},
		{FieldOpaqueRemaining, "Digest"},
	}},
	TypeCDS: {Type: TypeCDS, Name: "CDS", Fields: []Field{
		{FieldUint16, "KeyTag"},
		{FieldUint8, "Algorithm"},
		{FieldUint8, "DigestType"},
		{FieldOpaqueRemaining, "Digest"},
	}},
	TypeSSHFP: {Type: TypeSSHFP, Name: "SSHFP", Fields: []Field{
		{FieldUint8, "Algorithm"},
		{FieldUint8, "Type"},
		{FieldOpaqueRemaining, "Fingerprint"},
	}},
	TypeRRSIG: {Type: TypeRRSIG, Name: "RRSIG", Fields: []Field{
		{FieldUint16, "TypeCovered"},
		{FieldUint8, "Algorithm"},
		{FieldUint8, "Labels"},
		{FieldUint32, "OrigTTL"},
		{FieldUint32, "Expiration"},
		{FieldUint32, "Inception"},
		{FieldUint16, "KeyTag"},
		{FieldUncompressibleName, "SignerName"},
		{FieldOpaqueRemaining, "Signature"},
	}},
	TypeNSEC: {Type: TypeNSEC, Name: "NSEC", Fields: []Field{
		{FieldUncompressibleName, "NextDomain"},
		{FieldOpaqueRemaining, "TypeBitMap"},
	}},
	TypeDNSKEY: {Type: TypeDNSKEY, Name: "DNSKEY", Fields: []Field{
		{FieldUint16, "Flags"},
		{FieldUint8, "Protocol"},
		{FieldUint8, "Algorithm"},
		{FieldOpaqueRemaining, "PublicKey"},
	}},
	TypeCDNSKEY: {Type: TypeCDNSKEY, Name: "CDNSKEY", Fields: []Field{
		{FieldUint16, "Flags"},
		{FieldUint8, "Protocol"},
		{FieldUint8, "Algorithm"},
		{FieldOpaqueRemaining, "PublicKey"},
	}},
	TypeNSEC3: {Type: TypeNSEC3, Name: "NSEC3", Fields: []Field{
		{FieldUint8, "Hash"},
		{FieldUint8, "Flags"},
		{FieldUint16, "Iterations"},
		{FieldCharString, "Salt"},
		{FieldCharString, "NextHashedOwner"},
		{FieldOpaqueRemaining, "TypeBitMap"},
	}},
	TypeNSEC3PARAM: {Type: TypeNSEC3PARAM, Name: "NSEC3PARAM", Fields: []Field{
		{FieldUint8, "Hash"},
		{FieldUint8, "Flags"},
		{FieldUint16, "Iterations"},
		{FieldCharString, "Salt"},
	}},
	TypeTLSA: {Type: TypeTLSA, Name: "TLSA", Fields: []Field{
		{FieldUint8, "Usage"},
		{FieldUint8, "Selector"},
		{FieldUint8, "MatchingType"},
		{FieldOpaqueRemaining, "Certificate"},
	}},
	TypeCSYNC: {Type: TypeCSYNC, Name: "CSYNC", Fields: []Field{
		{FieldUint32, "Serial"},
		{FieldUint16, "Flags"},
		{FieldOpaqueRemaining, "TypeBitMap"},
	}},
	TypeZONEMD: {Type: TypeZONEMD, Name: "ZONEMD", Fields: []Field{
		{FieldUint32, "Serial"},
		{FieldUint8, "Scheme"},
		{FieldUint8, "HashAlgo"},
		{FieldOpaqueRemaining, "Digest"},
	}},
	TypeCAA: {Type: TypeCAA, Name: "CAA", Fields: []Field{
		{FieldUint8, "Flag"},
		{FieldCharString, "Tag"},
		{FieldOpaqueRemaining, "Value"},
	}},
	TypeSVCB: {Type: TypeSVCB, Name: "SVCB", Fields: []Field{
		{FieldUint16, "Priority"},
		{FieldUncompressibleName, "Target"},
		{FieldOpaqueRemaining, "Params"},
	}},
	TypeHTTPS: {Type: TypeHTTPS, Name: "HTTPS", Fields: []Field{
		{FieldUint16, "Priority"},
		{FieldUncompressibleName, "Target"},
		{FieldOpaqueRemaining, "Params"},
	}},
}

// Lookup returns the descriptor for t and true, or the zero Descriptor and
// false if t is not a known/structured type (in which case the wire codec
// must treat rdata as an opaque RFC 3597 "unknown RR" blob).
func Lookup(t uint16) (Descriptor, bool) {
	d, ok := table[t]
	return d, ok
}

// IsSingleton reports whether a zone may hold at most one RR of this type
// at a given owner (CNAME, SOA, NSEC3PARAM per spec.md §4.4.3's update
// table: "if it is a singleton type (CNAME, SOA, NSEC3PARAM), replace").
func IsSingleton(t uint16) bool {
	switch t {
	case TypeCNAME, TypeSOA, TypeNSEC3PARAM:
		return true
	default:
		return false
	}
}

// IsForbiddenInUpdate reports whether t may never appear as an update RR
// in a DNS UPDATE's authority section (spec.md §4.4.3: "Forbidden in
// updates: NSEC, NSEC3, RRSIG").
func IsForbiddenInUpdate(t uint16) bool {
	switch t {
	case TypeNSEC, TypeNSEC3, TypeRRSIG:
		return true
	default:
		return false
	}
}

// Name returns the mnemonic for a type, or a generic "TYPEnnn" form per
// RFC 3597 for types without a descriptor.
func Name(t uint16) string {
	if d, ok := table[t]; ok {
		return d.Name
	}
	switch t {
	case TypeOPT:
		return "OPT"
	case TypeTSIG:
		return "TSIG"
	case TypeAXFR:
		return "AXFR"
	case TypeIXFR:
		return "IXFR"
	case TypeANY:
		return "ANY"
	}
	return "TYPE" + itoa(t)
}

var byName = func() map[string]uint16 {
	m := make(map[string]uint16, len(table)+5)
	for t, d := range table {
		m[d.Name] = t
	}
	m["OPT"] = TypeOPT
	m["TSIG"] = TypeTSIG
	m["AXFR"] = TypeAXFR
	m["IXFR"] = TypeIXFR
	m["ANY"] = TypeANY
	return m
}()

// TypeByName is Name's inverse: the mnemonic to its numeric type, for
// configuration-file and debug-command text parsing.
func TypeByName(name string) (uint16, bool) {
	t, ok := byName[name]
	return t, ok
}

func itoa(t uint16) string {
	if t == 0 {
		return "0"
	}
	var buf [5]byte
	i := len(buf)
	for t > 0 {
		i--
		buf[i] = byte('0' + t%10)
		t /= 10
	}
	return string(buf[i:])
}
