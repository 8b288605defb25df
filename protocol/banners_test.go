package protocol

import "testing"

func TestBannerDetectors(t *testing.T) {
	tests := []struct {
		name string
		pkt  []byte
		want Tag
	}{
		{"ssh", []byte("SSH-2.0-OpenSSH_9.3\r\n"), SSH},
		{"ftp", []byte("220 Welcome to FTP\r\n"), FTP},
		{"smtp", []byte("EHLO mail.example.com\r\n"), SMTP},
		{"imap", []byte("* OK IMAP4rev1 ready\r\n"), IMAP},
		{"pop3", []byte("+OK POP3 server ready\r\n"), POP3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tag := Detect(TransportTCP, 12345, tt.pkt); tag != tt.want {
				t.Fatalf("Detect() = %v, want %v", tag, tt.want)
			}
		})
	}
}

func TestUnrecognizedPacketFallsBackToTransport(t *testing.T) {
	pkt := []byte{0x01, 0x02, 0x03, 0x04}
	if tag := Detect(TransportTCP, 9999, pkt); tag != TCP {
		t.Fatalf("Detect(TCP) = %v, want TCP fallback", tag)
	}
	if tag := Detect(TransportUDP, 9999, pkt); tag != UDP {
		t.Fatalf("Detect(UDP) = %v, want UDP fallback", tag)
	}
}

func TestDetectEmptyPacketIsUnknown(t *testing.T) {
	if tag := Detect(TransportTCP, 80, nil); tag != Unknown {
		t.Fatalf("Detect(nil) = %v, want Unknown", tag)
	}
}

func TestDetectDNSByPortRegardlessOfPayload(t *testing.T) {
	if tag := Detect(TransportUDP, 53, []byte{0xde, 0xad}); tag != DNS {
		t.Fatalf("Detect() = %v, want DNS", tag)
	}
}
