package flow

import (
	"testing"

	"github.com/flowguard/flowguard/flowip"
)

func newTestContext() *Context {
	return NewContext(1, 100, "curl", "/usr/bin/curl", TCP, Outbound, flowip.Parse("93.184.216.34"), 443)
}

func TestNewContextDefaults(t *testing.T) {
	ctx := newTestContext()
	if ctx.FlowDecision != Allow {
		t.Fatalf("default FlowDecision = %v, want Allow", ctx.FlowDecision)
	}
	if ctx.PathDecision != PathLocal {
		t.Fatalf("default PathDecision = %v, want PathLocal", ctx.PathDecision)
	}
}

func TestAddDomainsDedupesAndPreservesOrder(t *testing.T) {
	ctx := newTestContext()
	if added := ctx.AddDomains([]string{"a.example", "b.example", "a.example"}); !added {
		t.Fatal("expected AddDomains to report new evidence")
	}
	if added := ctx.AddDomains([]string{"a.example"}); added {
		t.Fatal("expected AddDomains to report no new evidence for an already-known domain")
	}
	got := ctx.Domains()
	want := []string{"a.example", "b.example"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("Domains() = %v, want %v", got, want)
	}
}

func TestAddDomainsSkipsEmptyStrings(t *testing.T) {
	ctx := newTestContext()
	ctx.AddDomains([]string{"", "a.example", ""})
	if len(ctx.Domains()) != 1 {
		t.Fatalf("Domains() = %v, want a single entry", ctx.Domains())
	}
}

func TestHasDomain(t *testing.T) {
	ctx := newTestContext()
	if ctx.HasDomain() {
		t.Fatal("fresh context must not report a domain")
	}
	ctx.AddDomains([]string{"example.com"})
	if !ctx.HasDomain() {
		t.Fatal("expected HasDomain true after AddDomains")
	}
}

func TestIsDNS(t *testing.T) {
	dnsCtx := NewContext(1, 1, "", "", UDP, Outbound, flowip.Parse("8.8.8.8"), 53)
	if !dnsCtx.IsDNS() {
		t.Fatal("expected port 53 to be classified as DNS")
	}
	nonDNS := newTestContext()
	if nonDNS.IsDNS() {
		t.Fatal("port 443 must not be classified as DNS")
	}
}

func TestIPStringAndRawIPString(t *testing.T) {
	ctx := newTestContext()
	if ctx.RawIPString() != "93.184.216.34" {
		t.Fatalf("RawIPString() = %q", ctx.RawIPString())
	}
	if ctx.IPString() != "93.184.216.34" {
		t.Fatalf("IPString() = %q", ctx.IPString())
	}

	v6 := NewContext(1, 1, "", "", TCP, Outbound, flowip.Parse("2606:2800:220:1:248:1893:25c8:1946"), 443)
	if v6.IPString()[0] != '[' {
		t.Fatalf("IPString() for v6 = %q, want bracketed", v6.IPString())
	}
	if v6.RawIPString()[0] == '[' {
		t.Fatalf("RawIPString() must never be bracketed, got %q", v6.RawIPString())
	}
}
