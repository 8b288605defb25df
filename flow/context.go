// Package flow implements the flow state container and the flow
// inspection engine that drives the per-packet resolve→reevaluate
// pipeline this repository drives per flow.
package flow

import (
	"fmt"
	"time"

	"github.com/flowguard/flowguard/flowip"
)

// Type is the flow's transport classification.
type Type int

const (
	TCP Type = iota
	UDP
	DNSFlow
)

func (t Type) String() string {
	switch t {
	case TCP:
		return "TCP"
	case UDP:
		return "UDP"
	case DNSFlow:
		return "DNS"
	default:
		return "Unknown"
	}
}

// Direction is the flow's originating direction.
type Direction int

const (
	Outbound Direction = iota
	Inbound
)

func (d Direction) String() string {
	if d == Inbound {
		return "Inbound"
	}
	return "Outbound"
}

// Decision is the admission verdict a surrounding proxy applies.
type Decision int

const (
	Allow Decision = iota
	Block
)

func (d Decision) String() string {
	if d == Block {
		return "Block"
	}
	return "Allow"
}

// PathDecision is the routing path verdict.
type PathDecision int

const (
	PathNone PathDecision = iota
	PathDirect
	PathLocal
	PathGateway
)

func (p PathDecision) String() string {
	switch p {
	case PathDirect:
		return "Direct"
	case PathLocal:
		return "Local"
	case PathGateway:
		return "Gateway"
	default:
		return "None"
	}
}

// Context is the mutable per-flow record the host passes through the
// engine. It is owned by one caller at a time; the engine never retains
// a reference past a call.
type Context struct {
	SessionID uint64
	Timestamp time.Time

	PID      uint32
	ProcName string
	ProcPath string

	Type      Type
	Direction Direction
	DstIP     flowip.IP
	DstPort   uint16

	FlowDecision Decision
	PathDecision PathDecision

	domains  []string
	domainOf map[string]struct{}
	ipString string
}

// NewContext builds a Context with the documented defaults:
// FlowDecision=Allow, PathDecision=Local.
func NewContext(sessionID uint64, pid uint32, procName, procPath string, typ Type, dir Direction, dstIP flowip.IP, dstPort uint16) *Context {
	return &Context{
		SessionID:    sessionID,
		Timestamp:    time.Now(),
		PID:          pid,
		ProcName:     procName,
		ProcPath:     procPath,
		Type:         typ,
		Direction:    dir,
		DstIP:        dstIP,
		DstPort:      dstPort,
		FlowDecision: Allow,
		PathDecision: PathLocal,
	}
}

// IsDNS reports whether this flow targets port 53.
func (c *Context) IsDNS() bool { return c.DstPort == 53 }

// Domains returns a read-only snapshot of the accumulated, deduplicated
// domain list, in insertion order.
func (c *Context) Domains() []string {
	if len(c.domains) == 0 {
		return nil
	}
	out := make([]string, len(c.domains))
	copy(out, c.domains)
	return out
}

// HasDomain reports whether any domain has been recorded.
func (c *Context) HasDomain() bool { return len(c.domains) > 0 }

// AddDomains appends each non-empty, not-already-present domain in
// candidates, in order, deduplicating and skipping empty strings.
func (c *Context) AddDomains(candidates []string) (added bool) {
	if c.domainOf == nil {
		c.domainOf = make(map[string]struct{})
	}
	for _, d := range candidates {
		if d == "" {
			continue
		}
		if _, ok := c.domainOf[d]; ok {
			continue
		}
		c.domainOf[d] = struct{}{}
		c.domains = append(c.domains, d)
		added = true
	}
	return added
}

// IPString returns the memoized textual form of DstIP, with IPv6
// addresses enclosed in brackets.
func (c *Context) IPString() string {
	if c.ipString == "" {
		c.ipString = c.DstIP.String()
	}
	return c.ipString
}

// RawIPString returns the textual form without brackets, suitable as an
// index key.
func (c *Context) RawIPString() string {
	return c.DstIP.Raw()
}

// Description renders a short human-readable summary, for logging.
func (c *Context) Description() string {
	return fmt.Sprintf("session=%d pid=%d proc=%s %s %s->%s:%d decision=%s/%s domains=%v",
		c.SessionID, c.PID, c.ProcName, c.Type, c.Direction, c.IPString(), c.DstPort,
		c.FlowDecision, c.PathDecision, c.domains)
}
