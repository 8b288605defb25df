package protocol

import "encoding/binary"

// isTLSRecord matches the record-layer version gate: byte 0 is
// Handshake (0x16), bytes 1-2 are 0x0301..0x0304. TLS 1.3 ClientHellos
// still advertise 0x0301 at the record layer, so this gate is
// deliberately not tightened to 0x0304.
func isTLSRecord(pkt []byte) bool {
	if len(pkt) < 5 {
		return false
	}
	if pkt[0] != 0x16 {
		return false
	}
	version := binary.BigEndian.Uint16(pkt[1:3])
	return version >= 0x0301 && version <= 0x0304
}

func isClientHello(pkt []byte) bool {
	return isTLSRecord(pkt) && len(pkt) > 5 && pkt[5] == 0x01
}

// clientHello holds the fields this package extracts from a ClientHello,
// enough to compute an SNI and a JA4-style fingerprint.
type clientHello struct {
	tlsVersion    uint16
	sni           string
	cipherSuites  []uint16
	alpn          []string
	hasExtensions bool
}

// parseClientHello walks a single-record TLS ClientHello per the
// spec's offset arithmetic: 5 TLS header + 4 handshake header + 2
// version + 32 random + session-id + cipher-suites + compression
// methods, then an extensions block. Any length field that would
// overrun the packet yields ok=false for the whole parse; a ClientHello
// with no server_name extension still parses successfully with an
// empty sni.
func parseClientHello(pkt []byte) (clientHello, bool) {
	if !isClientHello(pkt) {
		return clientHello{}, false
	}

	var ch clientHello
	if len(pkt) < 11 {
		return clientHello{}, false
	}
	ch.tlsVersion = binary.BigEndian.Uint16(pkt[9:11])

	off := 9  // start of handshake version field
	off += 34 // version(2) + random(32)
	if off+1 > len(pkt) {
		return clientHello{}, false
	}

	sessionIDLen := int(pkt[off])
	off += 1 + sessionIDLen
	if off+2 > len(pkt) {
		return clientHello{}, false
	}

	cipherSuitesLen := int(binary.BigEndian.Uint16(pkt[off : off+2]))
	off += 2
	if off+cipherSuitesLen > len(pkt) {
		return clientHello{}, false
	}
	for i := 0; i+1 < cipherSuitesLen; i += 2 {
		ch.cipherSuites = append(ch.cipherSuites, binary.BigEndian.Uint16(pkt[off+i:off+i+2]))
	}
	off += cipherSuitesLen

	if off+1 > len(pkt) {
		return clientHello{}, false
	}
	compressionMethodsLen := int(pkt[off])
	off += 1 + compressionMethodsLen
	if off+2 > len(pkt) {
		// No extensions present; still a valid (if unusual) ClientHello.
		return ch, true
	}

	extensionsLen := int(binary.BigEndian.Uint16(pkt[off : off+2]))
	off += 2
	ch.hasExtensions = extensionsLen > 0
	end := off + extensionsLen
	if end > len(pkt) {
		return clientHello{}, false
	}

	for off+4 <= end {
		extType := binary.BigEndian.Uint16(pkt[off : off+2])
		extLen := int(binary.BigEndian.Uint16(pkt[off+2 : off+4]))
		body := off + 4
		if body+extLen > end {
			break
		}
		switch extType {
		case 0x0000:
			if sni, ok := parseServerNameExtension(pkt[body : body+extLen]); ok {
				ch.sni = sni
			}
		case 0x0010:
			ch.alpn = parseALPNExtension(pkt[body : body+extLen])
		}
		off = body + extLen
	}

	return ch, true
}

// parseServerNameExtension expects the server_name extension body:
// a u16 list length, then repeated (type:u8, len:u16, name) entries.
// Only entry type 0x00 (host_name) is interpreted.
func parseServerNameExtension(body []byte) (string, bool) {
	if len(body) < 2 {
		return "", false
	}
	listLen := int(binary.BigEndian.Uint16(body[0:2]))
	off := 2
	end := off + listLen
	if end > len(body) {
		end = len(body)
	}
	for off+3 <= end {
		entryType := body[off]
		nameLen := int(binary.BigEndian.Uint16(body[off+1 : off+3]))
		off += 3
		if off+nameLen > end {
			return "", false
		}
		if entryType == 0x00 {
			return string(body[off : off+nameLen]), true
		}
		off += nameLen
	}
	return "", false
}

func parseALPNExtension(body []byte) []string {
	if len(body) < 2 {
		return nil
	}
	listLen := int(binary.BigEndian.Uint16(body[0:2]))
	off := 2
	end := off + listLen
	if end > len(body) {
		end = len(body)
	}
	var values []string
	for off+1 <= end {
		strLen := int(body[off])
		off++
		if off+strLen > end {
			break
		}
		values = append(values, string(body[off:off+strLen]))
		off += strLen
	}
	return values
}

// ExtractSNI is the exported single-purpose entry point for callers
// that only care about the domain, not the full ClientHello parse.
func ExtractSNI(pkt []byte) (string, bool) {
	ch, ok := parseClientHello(pkt)
	if !ok || ch.sni == "" {
		return "", false
	}
	return ch.sni, true
}
