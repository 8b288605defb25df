package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/flowguard/flowguard/flow"
)

const blockRuleYAML = `
title: Block known bad domain
id: 11111111-1111-1111-1111-111111111111
logsource:
  category: network_connection
detection:
  selection:
    DestinationHostname: blocked.example
  condition: selection
`

const blockPortRuleYAML = `
title: Block plaintext telnet
id: 22222222-2222-2222-2222-222222222222
logsource:
  category: network_connection
detection:
  selection:
    DestinationPort: '23'
  condition: selection
`

func writeRule(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing rule file: %v", err)
	}
}

func TestEvaluateBlocksMatchingDomain(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "block.yml", blockRuleYAML)

	e, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if !e.Evaluate(flow.TCP, 443, []string{"blocked.example"}) {
		t.Fatal("expected the matching domain to be blocked")
	}
	if e.Evaluate(flow.TCP, 443, []string{"safe.example"}) {
		t.Fatal("expected a non-matching domain to be allowed")
	}
}

func TestEvaluateBlocksMatchingPort(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "block-port.yml", blockPortRuleYAML)

	e, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if !e.Evaluate(flow.TCP, 23, nil) {
		t.Fatal("expected port 23 to be blocked")
	}
	if e.Evaluate(flow.TCP, 443, nil) {
		t.Fatal("expected port 443 to be allowed")
	}
}

func TestEvaluateWithNoRulesAllowsEverything(t *testing.T) {
	dir := t.TempDir()
	e, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if e.Evaluate(flow.TCP, 443, []string{"anything.example"}) {
		t.Fatal("an empty rule set must never block")
	}
}

func TestIsFlowBlocklistRuleFiltersByField(t *testing.T) {
	dir := t.TempDir()
	// A rule that targets an unrelated field must be ignored entirely.
	writeRule(t, dir, "unrelated.yml", `
title: Unrelated process rule
id: 33333333-3333-3333-3333-333333333333
logsource:
  category: process_creation
detection:
  selection:
    Image: '*malware.exe'
  condition: selection
`)

	e, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer e.Close()

	if len(e.rules) != 0 {
		t.Fatalf("expected the unrelated rule to be ignored, loaded %d rules", len(e.rules))
	}
}
