package wire

// StripTSIG returns the prefix of raw up to (not including) the TSIG RR
// that begins at tsigOffset, with ARCOUNT decremented by one in a copy of
// the header — "the message wire with TSIG RR stripped and ARCOUNT
// decremented" required as MAC input by spec.md §4.5. Pass
// Message.TSIGOffset; if it is -1 (no TSIG present) raw is returned as-is.
func StripTSIG(raw []byte, tsigOffset int) []byte {
	if tsigOffset < 0 {
		return raw
	}
	out := make([]byte, tsigOffset)
	copy(out, raw[:tsigOffset])
	arcount := uint16(out[10])<<8 | uint16(out[11])
	arcount--
	out[10] = byte(arcount >> 8)
	out[11] = byte(arcount)
	return out
}
