package protocol

import "bytes"

// Banner/command-shape detectors for protocols the detector tags but
// never extracts a domain from.

func isSSHBanner(pkt []byte) bool {
	return bytes.HasPrefix(pkt, []byte("SSH-"))
}

var ftpCommands = [][]byte{
	[]byte("USER "), []byte("PASS "), []byte("RETR "), []byte("STOR "),
	[]byte("220 "), []byte("230 "), []byte("331 "),
}

func isFTPBanner(pkt []byte) bool {
	for _, c := range ftpCommands {
		if bytes.HasPrefix(pkt, c) {
			return true
		}
	}
	return false
}

var smtpCommands = [][]byte{
	[]byte("HELO "), []byte("EHLO "), []byte("MAIL FROM:"), []byte("RCPT TO:"),
	[]byte("220 "), []byte("250 "),
}

func isSMTPBanner(pkt []byte) bool {
	for _, c := range smtpCommands {
		if bytes.HasPrefix(pkt, c) {
			return true
		}
	}
	return false
}

var imapCommands = [][]byte{
	[]byte("* OK "), []byte("a1 LOGIN "), []byte("a1 LOGIN"), []byte("A001 "),
}

func isIMAPBanner(pkt []byte) bool {
	for _, c := range imapCommands {
		if bytes.HasPrefix(pkt, c) {
			return true
		}
	}
	return false
}

var pop3Commands = [][]byte{
	[]byte("+OK "), []byte("USER "), []byte("PASS "), []byte("RETR "),
}

func isPOP3Banner(pkt []byte) bool {
	for _, c := range pop3Commands {
		if bytes.HasPrefix(pkt, c) {
			return true
		}
	}
	return false
}
