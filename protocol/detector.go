// Package protocol implements the flow inspection engine's protocol
// detector and its per-protocol domain extractors (HTTP Host, TLS SNI),
// plus a supplemental TLS ClientHello fingerprint.
package protocol

// Transport is the flow's transport-layer kind, mirroring flow.Type
// without importing package flow (the detector must not know about the
// engine that owns it).
type Transport int

const (
	TransportTCP Transport = iota
	TransportUDP
)

// Tag identifies the detected application protocol.
type Tag int

const (
	Unknown Tag = iota
	DNS
	TLS
	HTTP
	QUIC
	SSH
	FTP
	SMTP
	IMAP
	POP3
	TCP
	UDP
)

func (t Tag) String() string {
	switch t {
	case DNS:
		return "DNS"
	case TLS:
		return "TLS"
	case HTTP:
		return "HTTP"
	case QUIC:
		return "QUIC"
	case SSH:
		return "SSH"
	case FTP:
		return "FTP"
	case SMTP:
		return "SMTP"
	case IMAP:
		return "IMAP"
	case POP3:
		return "POP3"
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	default:
		return "Unknown"
	}
}

// Detect classifies a packet, dispatching in a fixed order: DNS by
// port, TLS record, HTTP/1.x, QUIC, banner protocols, then a
// transport-shaped fallback. It never panics; an empty packet yields
// Unknown, and an unrecognized one falls back to TCP or UDP.
func Detect(transport Transport, dstPort uint16, pkt []byte) Tag {
	if len(pkt) == 0 {
		return Unknown
	}
	if dstPort == 53 {
		return DNS
	}
	if isTLSRecord(pkt) {
		return TLS
	}
	if isHTTPRequest(pkt) || isHTTPResponse(pkt) {
		return HTTP
	}
	if transport == TransportUDP && isQUICLongHeader(pkt) {
		return QUIC
	}
	if isSSHBanner(pkt) {
		return SSH
	}
	if isFTPBanner(pkt) {
		return FTP
	}
	if isSMTPBanner(pkt) {
		return SMTP
	}
	if isIMAPBanner(pkt) {
		return IMAP
	}
	if isPOP3Banner(pkt) {
		return POP3
	}
	switch transport {
	case TransportTCP:
		return TCP
	case TransportUDP:
		return UDP
	default:
		return Unknown
	}
}

// ExtractDomain detects the protocol and, for HTTP and TLS, attempts to
// extract the associated domain. It returns ("", tag) when no domain
// could be extracted, and (domain, tag) otherwise. It also returns a
// non-empty JA4 fingerprint when the packet is a fully-parseable TLS
// ClientHello; the fingerprint is purely informational and is never fed
// back into the domain list or the decision.
func ExtractDomain(transport Transport, dstPort uint16, pkt []byte) (domain string, tag Tag, ja4 string) {
	if len(pkt) == 0 {
		return "", Unknown, ""
	}
	tag = Detect(transport, dstPort, pkt)
	switch tag {
	case HTTP:
		if host, ok := ExtractHTTPHost(pkt); ok {
			domain = host
		}
	case TLS:
		if hello, ok := parseClientHello(pkt); ok {
			domain = hello.sni
			ja4 = computeJA4(transport, hello)
		}
	}
	return domain, tag, ja4
}
