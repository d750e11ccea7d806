package server

import (
	"github.com/sandpiper-dns/adns/dname"
	"github.com/sandpiper-dns/adns/rrtype"
	"github.com/sandpiper-dns/adns/wire"
	"github.com/sandpiper-dns/adns/zone"
)

// answerNormal implements spec.md §4.4.2's normal answer algorithm against
// an already-selected zone z, writing ANSWER/AUTHORITY/ADDITIONAL sections
// into b. It returns the RCODE; AA is set on b directly.
func (p *Processor) answerNormal(b *wire.Builder, z *zone.Zone, origQName dname.Name, qtype, qclass uint16, do bool) uint8 {
	cur := origQName
	aa := true

	for chain := 0; ; chain++ {
		res := z.Lookup(cur)

		// A proper ancestor is a delegation cut: refer there regardless of
		// what (if anything) sits below it, whatever the query type. A DS
		// query for the cut name itself is the exact-match case below,
		// answered at the parent side (RFC 4035 §3.1.4.1).
		if res.ClosestEncloser != nil && res.ClosestEncloser.IsDelegation &&
			!res.ClosestEncloser.Owner.Equal(cur) {
			p.writeReferral(b, z, res.ClosestEncloser, do)
			return wire.RcodeNoError
		}

		if res.Node != nil {
			node := res.Node
			if node.IsDelegation && qtype != rrtype.TypeDS {
				p.writeReferral(b, z, node, do)
				return wire.RcodeNoError
			}
			if qtype == rrtype.TypeANY || node.HasType(qtype) {
				p.writeMatch(b, z, cur, node, qtype, do)
				b.SetAA(aa)
				return wire.RcodeNoError
			}
			if node.HasType(rrtype.TypeCNAME) && qtype != rrtype.TypeCNAME {
				target, ok := p.followCNAME(b, z, cur, node, do)
				if !ok || chain >= p.MaxCNAMEChain {
					b.SetAA(aa)
					return wire.RcodeNoError
				}
				cur = target
				continue
			}
			p.writeNoData(b, z, node, do)
			b.SetAA(aa)
			return wire.RcodeNoError
		}

		if wild, ok := z.WildcardChild(res.ClosestEncloser); ok {
			if qtype == rrtype.TypeANY || wild.HasType(qtype) {
				p.writeMatch(b, z, cur, wild, qtype, do)
				b.SetAA(aa)
				return wire.RcodeNoError
			}
			if wild.HasType(rrtype.TypeCNAME) && qtype != rrtype.TypeCNAME {
				target, ok := p.followCNAME(b, z, cur, wild, do)
				if !ok || chain >= p.MaxCNAMEChain {
					b.SetAA(aa)
					return wire.RcodeNoError
				}
				cur = target
				continue
			}
			p.writeNoData(b, z, wild, do)
			b.SetAA(aa)
			return wire.RcodeNoError
		}

		p.writeNameError(b, z, res, do)
		b.SetAA(aa)
		return wire.RcodeNXDomain
	}
}

// writeMatch emits every RRSet of qtype at node (or all of them, for
// QTYPE=ANY) under owner, plus additional-section glue and, if do and the
// zone is signed, any RRSIG RRSet stored at the node.
func (p *Processor) writeMatch(b *wire.Builder, z *zone.Zone, owner dname.Name, node *zone.Node, qtype uint16, do bool) {
	var answered wire.RRSet
	if qtype == rrtype.TypeANY {
		for t, set := range node.RRSets {
			if t == rrtype.TypeRRSIG {
				continue
			}
			rrs := rrSetToWire(owner, set)
			answered = append(answered, rrs...)
			b.AddAnswer(rrs)
		}
	} else if set, ok := node.RRSets[qtype]; ok {
		rrs := rrSetToWire(owner, set)
		answered = rrs
		b.AddAnswer(rrs)
	}
	if do && z.Signed {
		if sigs, ok := node.RRSets[rrtype.TypeRRSIG]; ok {
			b.AddAnswer(rrSetToWire(owner, sigs))
		}
	}
	if add := additionalGlue(z, answered); len(add) > 0 {
		b.AddAdditional(add)
	}
}

// followCNAME emits the CNAME RRSet at node under owner and returns its
// target, the next name to resolve, if that target is still within z
// (spec.md §4.4.2: "the zone need not contain the target; if it does,
// iterate; if not, stop").
func (p *Processor) followCNAME(b *wire.Builder, z *zone.Zone, owner dname.Name, node *zone.Node, do bool) (dname.Name, bool) {
	set := node.RRSets[rrtype.TypeCNAME]
	b.AddAnswer(rrSetToWire(owner, set))
	if do && z.Signed {
		if sigs, ok := node.RRSets[rrtype.TypeRRSIG]; ok {
			b.AddAnswer(rrSetToWire(owner, sigs))
		}
	}
	if len(set.RRs) == 0 {
		return dname.Name{}, false
	}
	target, ok := firstNameField(set.RRs[0].RData)
	if !ok || !target.IsSubdomainOf(z.Apex) {
		return dname.Name{}, false
	}
	return target, true
}

// writeReferral emits a delegation referral, spec.md §4.4.2: "NS RRSet in
// AUTHORITY, any in-zone A/AAAA for the NS targets in ADDITIONAL, clear
// AA."
func (p *Processor) writeReferral(b *wire.Builder, z *zone.Zone, node *zone.Node, do bool) {
	nsSet := rrSetToWire(node.Owner, node.RRSets[rrtype.TypeNS])
	b.AddAuthority(nsSet)
	if add := additionalGlue(z, nsSet); len(add) > 0 {
		b.AddAdditional(add)
	}
	b.SetAA(false)
}

// writeNoData emits the SOA-in-AUTHORITY NODATA response, plus an
// authenticated denial proof if signed and DO is set.
func (p *Processor) writeNoData(b *wire.Builder, z *zone.Zone, node *zone.Node, do bool) {
	b.AddAuthority(apexSOA(z))
	if !do || !z.Signed {
		return
	}
	if set, ok := node.RRSets[rrtype.TypeNSEC]; ok {
		b.AddAuthority(rrSetToWire(node.Owner, set))
	} else if t3 := z.NSEC3(); t3 != nil {
		if cover, ok := t3.LookupHash(t3.HashName(node.Owner)); ok {
			if set, ok := cover.RRSets[rrtype.TypeNSEC3]; ok {
				b.AddAuthority(rrSetToWire(cover.Owner, set))
			}
		}
	}
}

// writeNameError emits the SOA-in-AUTHORITY NXDOMAIN response, plus a
// covering NSEC/NSEC3 denial proof keyed off the lookup's Previous node.
// This is a simplified single-proof form of RFC 4035's full name-error
// proof (which in general needs both a covering proof for QNAME and a
// wildcard non-existence proof); it is sufficient to demonstrate the
// shape without implementing a full validator.
func (p *Processor) writeNameError(b *wire.Builder, z *zone.Zone, res zone.LookupResult, do bool) {
	b.AddAuthority(apexSOA(z))
	if !do || !z.Signed {
		return
	}
	if res.Previous != nil {
		if set, ok := res.Previous.RRSets[rrtype.TypeNSEC]; ok {
			b.AddAuthority(rrSetToWire(res.Previous.Owner, set))
			return
		}
	}
	if t3 := z.NSEC3(); t3 != nil && res.ClosestEncloser != nil {
		hash := t3.HashName(res.ClosestEncloser.Owner)
		if cover, ok := t3.PredecessorHash(hash); ok {
			if set, ok := cover.RRSets[rrtype.TypeNSEC3]; ok {
				b.AddAuthority(rrSetToWire(cover.Owner, set))
			}
		}
	}
}

func apexSOA(z *zone.Zone) wire.RRSet {
	apex := z.ApexNode()
	if apex == nil {
		return nil
	}
	return rrSetToWire(z.Apex, apex.RRSets[rrtype.TypeSOA])
}
