package protocol

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
)

// computeJA4 renders a JA4-style fingerprint for a parsed ClientHello.
// This is a supplemental, informational-only feature: it never affects
// domain resolution or the flow decision.
func computeJA4(transport Transport, ch clientHello) string {
	proto := "t"
	if transport == TransportUDP {
		proto = "q"
	}

	tlsVer := ja4TLSVersion(ch.tlsVersion)

	sni := "i"
	if ch.sni != "" {
		sni = "d"
	}

	alpn := ja4ALPN(ch.alpn)
	cipherCount := ja4CipherCount(ch.cipherSuites)
	cipherHash := ja4CipherHash(ch.cipherSuites)
	extCount := "00"

	a := fmt.Sprintf("%s%s%s%s%s%s", proto, tlsVer, sni, cipherCount, extCount, alpn)
	return fmt.Sprintf("%s_%s", a, cipherHash)
}

func ja4TLSVersion(v uint16) string {
	switch v {
	case 0x0100:
		return "s1"
	case 0x0200:
		return "s2"
	case 0x0300:
		return "s3"
	case 0x0301:
		return "10"
	case 0x0302:
		return "11"
	case 0x0303:
		return "12"
	case 0x0304:
		return "13"
	case 0xfeff:
		return "d1"
	case 0xfefd:
		return "d2"
	case 0xfefc:
		return "d3"
	default:
		return "00"
	}
}

func ja4ALPN(values []string) string {
	if len(values) == 0 {
		return "00"
	}
	if len(values[0]) == 2 {
		return values[0]
	}
	v := values[0]
	return string(v[0]) + string(v[len(v)-1])
}

func isGREASE(v uint16) bool {
	return (v&0x0f0f) == 0x0a0a && ((v>>4)&0x0f) == (v>>12)
}

func removeGREASE(cipherSuites []uint16) []uint16 {
	out := make([]uint16, 0, len(cipherSuites))
	for _, c := range cipherSuites {
		if !isGREASE(c) {
			out = append(out, c)
		}
	}
	return out
}

func ja4CipherCount(cipherSuites []uint16) string {
	filtered := removeGREASE(cipherSuites)
	if len(filtered) == 0 {
		return "00"
	}
	return strconv.Itoa(len(filtered))
}

func ja4CipherHash(cipherSuites []uint16) string {
	filtered := removeGREASE(cipherSuites)
	if len(filtered) == 0 {
		return "000000000000"
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i] < filtered[j] })

	joined := ""
	for _, c := range filtered {
		joined += fmt.Sprintf("%04x,", c)
	}
	joined = joined[:len(joined)-1]

	hash := sha256.Sum256([]byte(joined))
	return fmt.Sprintf("%x", hash)[:12]
}
