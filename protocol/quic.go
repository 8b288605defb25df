package protocol

// knownQUICVersions is a small set of long-header versions this
// detector recognizes; it is used only to raise confidence that a UDP
// packet is QUIC, not to fully decode it. Full CRYPTO-frame parsing to
// pull an SNI out of a QUIC Initial packet is out of scope here (as it
// was in the source this detector's style is grounded on).
var knownQUICVersions = map[uint32]bool{
	0x00000001: true, // QUIC v1
	0xff00001d: true, // draft-29
	0x51303433: true, // Q043
	0x51303436: true, // Q046
	0x51303530: true, // Q050
}

// isQUICLongHeader reports whether pkt looks like a QUIC long-header
// packet: high bit of byte 0 set, and a version field matching a known
// QUIC version.
func isQUICLongHeader(pkt []byte) bool {
	if len(pkt) < 5 {
		return false
	}
	if pkt[0]&0x80 == 0 {
		return false
	}
	version := uint32(pkt[1])<<24 | uint32(pkt[2])<<16 | uint32(pkt[3])<<8 | uint32(pkt[4])
	return knownQUICVersions[version]
}
