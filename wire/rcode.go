package wire

// Opcode values (header flags1 bits 3-6).
const (
	OpcodeQuery  uint8 = 0
	OpcodeNotify uint8 = 4
	OpcodeUpdate uint8 = 5
)

// RCODE values, spec.md §6 "Supported RCODEs (response)". Values not in
// this list (11-15, and above 16) are never produced by this codec; BadVers is
// carried in the EDNS extended-RCODE byte, not the 4-bit header field, but
// the constant is kept here alongside its siblings for readability at call
// sites.
const (
	RcodeNoError  uint8 = 0
	RcodeFormErr  uint8 = 1
	RcodeServFail uint8 = 2
	RcodeNXDomain uint8 = 3
	RcodeNotImp   uint8 = 4
	RcodeRefused  uint8 = 5
	RcodeYXDomain uint8 = 6
	RcodeYXRRSet  uint8 = 7
	RcodeNXRRSet  uint8 = 8
	RcodeNotAuth  uint8 = 9
	RcodeNotZone  uint8 = 10
	RcodeBadVers  uint8 = 16
)

// TSIG extended-RCODE values carried in the TSIG RR's error field, spec.md
// §6: "TSIG extended RCODEs: BADKEY(17), BADSIG(16), BADTIME(18)."
const (
	TsigErrNoError uint16 = 0
	TsigErrBadSig  uint16 = 16
	TsigErrBadKey  uint16 = 17
	TsigErrBadTime uint16 = 18
)
