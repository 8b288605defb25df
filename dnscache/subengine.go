package dnscache

import (
	"net"

	"github.com/flowguard/flowguard/dnswire"
	"github.com/flowguard/flowguard/internal/logging"
)

// SubEngine glues the wire parser, response cache, and reverse index.
// It knows nothing about FlowContext or the engine that owns it,
// avoiding a back-pointer; callers pass and receive plain data.
type SubEngine struct {
	cache *ResponseCache
	index *ReverseIndex
	log   logging.Logger
}

// NewSubEngine builds a sub-engine with the given cache capacity
// (DefaultCapacity if capacity <= 0) and logger (a no-op logger if nil).
func NewSubEngine(capacity int, log logging.Logger) *SubEngine {
	if log == nil {
		log = logging.NoOp()
	}
	return &SubEngine{
		cache: NewResponseCache(capacity),
		index: NewReverseIndex(),
		log:   log,
	}
}

// HandleQuery parses an outbound DNS query. It returns any question
// names found (for the caller to add to its own domain evidence), the
// cached response image on a hit, and whether a hit occurred. Malformed
// input returns (nil, nil, false) without side effects.
func (e *SubEngine) HandleQuery(pkt []byte) (domains []string, resp []byte, hit bool) {
	msg, ok := dnswire.Decode(pkt)
	if !ok {
		return nil, nil, false
	}
	for _, q := range msg.Questions {
		if q.Name != "" {
			domains = append(domains, q.Name)
		}
	}
	resp, hit = e.cache.BuildResponse(pkt)
	if hit {
		e.log.Debug("dnscache", "cache hit id=0x%04x qname=%s", msg.Header.ID, firstQName(msg))
	}
	return domains, resp, hit
}

// HandleResponse parses an inbound DNS response, collects every domain
// name and address it carries, indexes addresses against names, and
// stores the raw response in the cache when it carries at least one
// address. It returns the collected domain names, deduplicated in
// first-seen order, for the caller to add to its own evidence. Any
// decoding failure is silently ignored.
func (e *SubEngine) HandleResponse(pkt []byte) (domains []string) {
	if len(pkt) < 12 {
		return nil
	}
	msg, ok := dnswire.Decode(pkt)
	if !ok || !msg.Header.IsResponse() {
		return nil
	}

	var names []string
	var ips []string
	seenName := make(map[string]struct{})
	addName := func(n string) {
		if n == "" {
			return
		}
		if _, ok := seenName[n]; ok {
			return
		}
		seenName[n] = struct{}{}
		names = append(names, n)
	}
	addIP := func(ip net.IP) {
		if ip != nil {
			ips = append(ips, ip.String())
		}
	}

	for _, q := range msg.Questions {
		addName(q.Name)
	}
	for _, a := range msg.Answers {
		addName(a.Name)
		switch a.Type {
		case dnswire.TypeA:
			addIP(a.IPv4)
		case dnswire.TypeAAAA:
			addIP(a.IPv6)
		case dnswire.TypeCNAME:
			addName(a.CNAME)
		case dnswire.TypePTR:
			addName(a.PTR)
		case dnswire.TypeMX:
			if a.MX != nil {
				addName(a.MX.Exchange)
			}
		case dnswire.TypeSRV:
			if a.SRV != nil {
				addName(a.SRV.Target)
			}
		}
	}

	if len(ips) > 0 && len(names) > 0 {
		e.index.AddMany(ips, names)
	}
	if len(ips) > 0 {
		e.cache.Store(pkt)
	}

	e.log.Trace("dnscache", "response ingested names=%d ips=%d", len(names), len(ips))
	return names
}

// GetDomainsForIP is a snapshot lookup against the reverse index.
func (e *SubEngine) GetDomainsForIP(ip string) []string {
	return e.index.Get(ip)
}

// ClearCache atomically resets both the response cache and the
// reverse index.
func (e *SubEngine) ClearCache() {
	e.cache.Clear()
	e.index.Clear()
}

// CacheLen exposes the current cache size.
func (e *SubEngine) CacheLen() int { return e.cache.Len() }

func firstQName(msg dnswire.Message) string {
	if len(msg.Questions) == 0 {
		return ""
	}
	return msg.Questions[0].Name
}
