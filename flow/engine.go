package flow

import (
	"sync"

	"github.com/flowguard/flowguard/dnscache"
	"github.com/flowguard/flowguard/internal/logging"
	"github.com/flowguard/flowguard/procattr"
	"github.com/flowguard/flowguard/protocol"
)

// PolicyEvaluator is the interface reevaluateDecision calls into when a
// host wires in a policy engine. Package flow depends only on this
// small interface, never on package policy directly, so the engine and
// its sub-engines never grow a back-pointer into policy internals.
type PolicyEvaluator interface {
	// Evaluate decides a flow's admission given its transport tuple and
	// currently-known domains. block=true means the caller should set
	// FlowDecision=Block, PathDecision=PathNone.
	Evaluate(typ Type, dstPort uint16, domains []string) (block bool)
}

// MetricsRecorder is the interface the engine reports observability
// events through. A nil recorder (the default) records nothing.
type MetricsRecorder interface {
	FlowProcessed()
	DomainResolved()
	CacheHit()
	CacheMiss()
	ProtocolDetected(tag protocol.Tag)
	Decision(d Decision)
	StartTiming() PhaseTimer
}

// PhaseTimer stops a single timed resolve→reevaluate pass. It is
// returned by MetricsRecorder.StartTiming so package flow never needs
// to know the concrete timer type a recorder uses.
type PhaseTimer interface {
	Stop()
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithCacheCapacity overrides the DNS response cache's bound.
func WithCacheCapacity(capacity int) Option {
	return func(e *Engine) { e.cacheCapacity = capacity }
}

// WithPolicy wires an opt-in policy engine behind reevaluate_decision.
// Without this option the engine's decision step always resolves to
// Allow/Local.
func WithPolicy(p PolicyEvaluator) Option {
	return func(e *Engine) { e.policy = p }
}

// WithMetrics wires an observability recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger wires a logging.Logger; the default is a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithProcAttr wires a PID→process-identity backfill cache. Without
// this option a flow's ProcName/ProcPath are never backfilled from an
// earlier flow on the same PID.
func WithProcAttr(c *procattr.Cache) Option {
	return func(e *Engine) { e.procAttr = c }
}

// Engine is the flow inspection engine: it owns the DNS sub-engine and
// the protocol detector, and drives the per-packet resolve→reevaluate
// pipeline over a Context. It holds no back-pointer from its owned
// members, per the design notes.
type Engine struct {
	dns           *dnscache.SubEngine
	policy        PolicyEvaluator
	metrics       MetricsRecorder
	log           logging.Logger
	procAttr      *procattr.Cache
	cacheCapacity int
}

// New builds an isolated Engine. Most hosts should prefer Default(),
// the process-wide singleton; New exists so tests can construct
// independent instances with their own cache/index state.
func New(opts ...Option) *Engine {
	e := &Engine{log: logging.NoOp()}
	for _, opt := range opts {
		opt(e)
	}
	e.dns = dnscache.NewSubEngine(e.cacheCapacity, e.log)
	return e
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
)

// Default returns the process-wide singleton engine, lazily
// initialized on first access.
func Default() *Engine {
	defaultOnce.Do(func() {
		defaultEngine = New()
	})
	return defaultEngine
}

// Arrive is flow_arrive: called when a flow identity is first known, no
// payload yet.
func (e *Engine) Arrive(ctx *Context) {
	stop := e.timePipeline()
	defer stop()
	e.backfillProcAttr(ctx)
	e.resolveDomainFromCache(ctx)
	e.reevaluateDecision(ctx)
	e.recordFlow(ctx)
}

// Open is flow_open: a reserved extension point. A no-op today
// regardless of FlowDecision; there is nothing else for it to do yet.
func (e *Engine) Open(ctx *Context) {
	_ = ctx
}

// Send is flow_send: an outbound packet. For DNS flows this parses the
// query and adds its question name to ctx.domains but never returns a
// cached response; use SendWithResponse for that. For all other flows
// it runs resolve_domain and, if new evidence was learned, reevaluates
// the decision.
func (e *Engine) Send(ctx *Context, pkt []byte) {
	e.SendWithResponse(ctx, pkt)
}

// SendWithResponse is flow_send_with_response: it returns true, with
// resp populated, when a cached DNS response answers this query and
// must be sent to the client instead of forwarded upstream. It returns
// false for all non-DNS traffic.
func (e *Engine) SendWithResponse(ctx *Context, pkt []byte) (resp []byte, hit bool) {
	if ctx == nil || len(pkt) == 0 {
		return nil, false
	}
	stop := e.timePipeline()
	defer stop()
	if ctx.IsDNS() {
		domains, cachedResp, ok := e.dns.HandleQuery(pkt)
		if ctx.AddDomains(domains) {
			e.reevaluateDecision(ctx)
		}
		if ok {
			e.recordCacheHit()
			return cachedResp, true
		}
		e.recordCacheMiss()
		return nil, false
	}

	if e.resolveDomain(ctx, pkt) {
		e.reevaluateDecision(ctx)
	}
	return nil, false
}

// Recv is flow_recv: an inbound packet. For DNS flows the response is
// handed to the sub-engine (parses, populates the reverse index,
// caches). For all other flows the same resolve+reevaluate path as
// Send runs.
func (e *Engine) Recv(ctx *Context, pkt []byte) {
	if ctx == nil || len(pkt) == 0 {
		return
	}
	stop := e.timePipeline()
	defer stop()
	if ctx.IsDNS() {
		domains := e.dns.HandleResponse(pkt)
		if ctx.AddDomains(domains) {
			e.reevaluateDecision(ctx)
		}
		return
	}
	if e.resolveDomain(ctx, pkt) {
		e.reevaluateDecision(ctx)
	}
}

// Close is flow_close: reserved, currently a no-op.
func (e *Engine) Close(ctx *Context) {
	_ = ctx
}

// GetDomainsForIP is the host-facing wrapper over the DNS sub-engine's
// reverse index lookup, exposed for hosts that want to probe it
// directly (e.g. the fixture demo harness).
func (e *Engine) GetDomainsForIP(ip string) []string {
	return e.dns.GetDomainsForIP(ip)
}

// ClearCache resets the DNS response cache and reverse index.
func (e *Engine) ClearCache() {
	e.dns.ClearCache()
}

// resolveDomainFromCache implements resolve_domain_from_cache: if
// ctx already has evidence, it is a no-op; otherwise it queries the
// reverse index by dst_ip's raw textual form, symmetric across V4 and
// V6.
func (e *Engine) resolveDomainFromCache(ctx *Context) bool {
	if ctx.HasDomain() {
		return false
	}
	if ctx.DstIP.IsUnknown() {
		return false
	}
	domains := e.dns.GetDomainsForIP(ctx.RawIPString())
	if len(domains) == 0 {
		return false
	}
	added := ctx.AddDomains(domains)
	if added && e.metrics != nil {
		e.metrics.DomainResolved()
	}
	return added
}

// resolveDomain implements resolve_domain: cache path first, then the
// protocol detector over the packet bytes.
func (e *Engine) resolveDomain(ctx *Context, pkt []byte) bool {
	if ctx.HasDomain() {
		return false
	}
	if e.resolveDomainFromCache(ctx) {
		return true
	}

	transport := protocol.TransportTCP
	if ctx.Type == UDP {
		transport = protocol.TransportUDP
	}
	domain, tag, _ := protocol.ExtractDomain(transport, ctx.DstPort, pkt)
	if e.metrics != nil {
		e.metrics.ProtocolDetected(tag)
	}
	if domain == "" {
		return false
	}
	added := ctx.AddDomains([]string{domain})
	if added && e.metrics != nil {
		e.metrics.DomainResolved()
	}
	return added
}

// reevaluateDecision is the sole writer of FlowDecision/PathDecision.
// Without a wired policy engine it always resolves to Allow/Local.
// With one wired in, it defers to the policy engine's evaluation of
// the flow's transport tuple and domains.
func (e *Engine) reevaluateDecision(ctx *Context) {
	if e.policy == nil {
		ctx.FlowDecision = Allow
		ctx.PathDecision = PathLocal
		if e.metrics != nil {
			e.metrics.Decision(ctx.FlowDecision)
		}
		return
	}

	if e.policy.Evaluate(ctx.Type, ctx.DstPort, ctx.Domains()) {
		ctx.FlowDecision = Block
		ctx.PathDecision = PathNone
	} else {
		ctx.FlowDecision = Allow
		ctx.PathDecision = PathLocal
	}
	if e.metrics != nil {
		e.metrics.Decision(ctx.FlowDecision)
	}
}

// backfillProcAttr fills a flow's ProcName/ProcPath from an earlier
// flow on the same PID when the caller omitted them, and otherwise
// records the identity the caller did supply for later flows to reuse.
func (e *Engine) backfillProcAttr(ctx *Context) {
	if e.procAttr == nil {
		return
	}
	if ctx.ProcName == "" && ctx.ProcPath == "" {
		if attr, ok := e.procAttr.Get(ctx.PID); ok {
			ctx.ProcName = attr.Name
			ctx.ProcPath = attr.Path
		}
		return
	}
	e.procAttr.Set(ctx.PID, ctx.ProcName, ctx.ProcPath)
}

// timePipeline starts a resolve→reevaluate phase timer when a recorder
// is wired, returning a no-op stop function otherwise.
func (e *Engine) timePipeline() func() {
	if e.metrics == nil {
		return func() {}
	}
	timer := e.metrics.StartTiming()
	return timer.Stop
}

func (e *Engine) recordFlow(ctx *Context) {
	if e.metrics != nil {
		e.metrics.FlowProcessed()
	}
	_ = ctx
}

func (e *Engine) recordCacheHit() {
	if e.metrics != nil {
		e.metrics.CacheHit()
	}
}

func (e *Engine) recordCacheMiss() {
	if e.metrics != nil {
		e.metrics.CacheMiss()
	}
}
