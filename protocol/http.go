package protocol

import (
	"bytes"
	"strings"
)

// httpMethods are the request-line prefixes recognized as HTTP/1.x,
// each including the trailing separator to reduce false positives.
var httpMethods = []string{
	"GET ", "POST ", "PUT ", "HEAD ", "DELETE ", "OPTIONS ", "PATCH ", "CONNECT ", "HTTP/",
}

func isHTTPRequest(pkt []byte) bool {
	for _, m := range httpMethods {
		if m == "HTTP/" {
			continue
		}
		if bytes.HasPrefix(pkt, []byte(m)) {
			return true
		}
	}
	return false
}

func isHTTPResponse(pkt []byte) bool {
	return bytes.HasPrefix(pkt, []byte("HTTP/"))
}

// maxHostScan is the "first ≤ 2 KiB" bound on Host: header scanning.
const maxHostScan = 2048

// ExtractHTTPHost scans the first 2 KiB of pkt for a case-insensitive
// "Host:" line, or, for a CONNECT request, parses the request-line
// target directly.
func ExtractHTTPHost(pkt []byte) (string, bool) {
	window := pkt
	if len(window) > maxHostScan {
		window = window[:maxHostScan]
	}

	if bytes.HasPrefix(window, []byte("CONNECT ")) {
		if host, ok := extractConnectTarget(window); ok {
			return host, true
		}
	}

	lower := bytes.ToLower(window)
	idx := bytes.Index(lower, []byte("\nhost:"))
	if idx < 0 {
		return "", false
	}
	rest := window[idx+len("\nhost:"):]
	end := bytes.IndexAny(rest, "\r\n")
	if end < 0 {
		end = len(rest)
	}
	host := strings.TrimSpace(string(rest[:end]))
	if host == "" {
		return "", false
	}
	return host, true
}

func extractConnectTarget(window []byte) (string, bool) {
	end := bytes.IndexByte(window, '\n')
	if end < 0 {
		end = len(window)
	}
	line := strings.TrimRight(string(window[:end]), "\r\n")
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", false
	}
	target := fields[1]
	if host, _, ok := strings.Cut(target, ":"); ok {
		return host, true
	}
	return target, true
}
