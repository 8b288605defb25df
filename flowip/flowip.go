// Package flowip implements the tagged-union destination address used
// throughout the flow inspection engine.
package flowip

import (
	"encoding/binary"
	"fmt"
	"net"
)

// Kind tags the variant held by an IP.
type Kind uint8

const (
	Unknown Kind = iota
	V4
	V6
)

// IP is a tagged value: Unknown, an IPv4 address in network byte order,
// or an IPv6 address split into two big-endian 64-bit halves.
//
// The zero value is Unknown.
type IP struct {
	kind Kind
	v4   uint32
	hi   uint64
	lo   uint64
}

// FromIPv4 builds a V4 IP from an address in network byte order.
func FromIPv4(addr uint32) IP {
	return IP{kind: V4, v4: addr}
}

// FromIPv6 builds a V6 IP from its two 64-bit halves, collapsing an
// IPv4-mapped address (::ffff:a.b.c.d) down to the V4 branch.
func FromIPv6(hi, lo uint64) IP {
	if hi == 0 && (lo>>32) == 0x0000ffff {
		return FromIPv4(uint32(lo & 0xffffffff))
	}
	return IP{kind: V6, hi: hi, lo: lo}
}

// Parse converts a textual IPv4 or IPv6 address into its narrowest IP
// form. It returns Unknown for anything net.ParseIP rejects.
func Parse(s string) IP {
	parsed := net.ParseIP(s)
	if parsed == nil {
		return IP{}
	}
	if v4 := parsed.To4(); v4 != nil {
		return FromIPv4(binary.BigEndian.Uint32(v4))
	}
	v6 := parsed.To16()
	if v6 == nil {
		return IP{}
	}
	hi := binary.BigEndian.Uint64(v6[0:8])
	lo := binary.BigEndian.Uint64(v6[8:16])
	return FromIPv6(hi, lo)
}

// Kind reports the variant held.
func (ip IP) Kind() Kind { return ip.kind }

func (ip IP) IsUnknown() bool { return ip.kind == Unknown }
func (ip IP) IsV4() bool      { return ip.kind == V4 }
func (ip IP) IsV6() bool      { return ip.kind == V6 }

// Equal compares tag then contents.
func (ip IP) Equal(other IP) bool {
	if ip.kind != other.kind {
		return false
	}
	switch ip.kind {
	case V4:
		return ip.v4 == other.v4
	case V6:
		return ip.hi == other.hi && ip.lo == other.lo
	default:
		return true
	}
}

// hashMix is the 64-bit golden-ratio constant used to mix the tag into
// the body.
const hashMix = 0x9e3779b97f4a7c15

// Hash mixes the tag with the body. Go's built-in maps do not need this
// (IP is comparable and can be used directly as a map key), but it is
// exposed for hosts that maintain their own hash-based structures.
func (ip IP) Hash() uint64 {
	h := uint64(ip.kind) * hashMix
	switch ip.kind {
	case V4:
		h ^= uint64(ip.v4)*hashMix + 0x9e3779b9
	case V6:
		h ^= ip.hi*hashMix + 0x9e3779b9
		h ^= ip.lo*hashMix + 0x517cc1b7
	}
	return h
}

func (ip IP) netIP() net.IP {
	switch ip.kind {
	case V4:
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, ip.v4)
		return net.IP(b)
	case V6:
		b := make([]byte, 16)
		binary.BigEndian.PutUint64(b[0:8], ip.hi)
		binary.BigEndian.PutUint64(b[8:16], ip.lo)
		return net.IP(b)
	default:
		return nil
	}
}

// String returns the canonical textual form, with IPv6 addresses
// enclosed in brackets. Unknown renders as "[Unknown]".
func (ip IP) String() string {
	switch ip.kind {
	case V4:
		return ip.netIP().String()
	case V6:
		return fmt.Sprintf("[%s]", ip.netIP().String())
	default:
		return "[Unknown]"
	}
}

// Raw returns the textual form without brackets, suitable for use as an
// index key. Unknown renders as the empty string.
func (ip IP) Raw() string {
	switch ip.kind {
	case V4, V6:
		return ip.netIP().String()
	default:
		return ""
	}
}
