// Package fixture loads the host-side fixture directories described in
// this repository's external-interfaces section: a textual context.txt
// plus TX_*/RX_* binary blobs, one directory per flow. This is test/demo
// tooling only, outside the core engine's scope.
package fixture

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/flowguard/flowguard/flow"
	"github.com/flowguard/flowguard/flowip"
)

// StepKind distinguishes an outbound blob (TX_*) from an inbound one
// (RX_*).
type StepKind int

const (
	Send StepKind = iota
	Recv
)

// Step is one packet blob to replay through the engine, in filename
// order.
type Step struct {
	Kind StepKind
	Name string
	Data []byte
}

// Fixture is a loaded flow: its initial context plus the ordered
// packet steps to replay.
type Fixture struct {
	Context *flow.Context
	Steps   []Step
}

// Load reads dir's context.txt and TX_*/RX_* blobs into a Fixture.
func Load(dir string) (*Fixture, error) {
	ctx, err := loadContext(filepath.Join(dir, "context.txt"))
	if err != nil {
		return nil, fmt.Errorf("loading context.txt: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading fixture directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "TX_") || strings.HasPrefix(name, "RX_") {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	steps := make([]Step, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading fixture blob %s: %w", name, err)
		}
		kind := Send
		if strings.HasPrefix(name, "RX_") {
			kind = Recv
		}
		steps = append(steps, Step{Kind: kind, Name: name, Data: data})
	}

	return &Fixture{Context: ctx, Steps: steps}, nil
}

func loadContext(path string) (*flow.Context, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fields := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sessionID, _ := strconv.ParseUint(fields["session_id"], 10, 64)
	pid, _ := strconv.ParseUint(fields["pid"], 10, 32)
	dstPort, _ := strconv.ParseUint(fields["dst_port"], 10, 16)

	typ := flow.TCP
	switch strings.ToUpper(fields["flow_type"]) {
	case "UDP":
		typ = flow.UDP
	case "DNS":
		typ = flow.DNSFlow
	}

	dir := flow.Outbound
	if strings.EqualFold(fields["direction"], "Inbound") {
		dir = flow.Inbound
	}

	dstIP := flowip.Parse(fields["dst_ip"])

	ctx := flow.NewContext(sessionID, uint32(pid), fields["proc_name"], fields["proc_path"],
		typ, dir, dstIP, uint16(dstPort))
	return ctx, nil
}
