package server

import (
	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
)

// answerChaos implements the QUERY/QCLASS=CH path of spec.md §4.4.1:
// "version.server" and "id.server" TXT queries under the Chaos class,
// answered from server identity rather than any zone.
func (p *Processor) answerChaos(b *wire.Builder, qname dname.Name, qtype uint16) uint8 {
	if qtype != rrtype.TypeTXT && qtype != rrtype.TypeANY {
		return wire.RcodeNotImp
	}

	var txt string
	switch {
	case qname.Equal(versionServerName):
		txt = p.Identity.Version
	case qname.Equal(idServerName):
		txt = p.Identity.ID
	default:
		return wire.RcodeRefused
	}
	if txt == "" {
		return wire.RcodeRefused
	}

	rdata := encodeCharString(txt)
	b.AddAnswer(wire.RRSet{{Name: qname, Type: rrtype.TypeTXT, Class: rrtype.ClassCH, TTL: 0, RData: rdata}})
	b.SetAA(true)
	return wire.RcodeNoError
}

var (
	versionServerName = mustName("version", "server")
	idServerName       = mustName("id", "server")
)

func mustName(labels ...string) dname.Name {
	n, err := dname.FromLabels(labels)
	if err != nil {
		panic(err)
	}
	return n
}

func encodeCharString(s string) []byte {
	if len(s) > 255 {
		s = s[:255]
	}
	return append([]byte{byte(len(s))}, []byte(s)...)
}
