// Package dnscache implements the DNS response cache, the IP→domains
// reverse index, and the DNS sub-engine that glues them to the wire
// parser in package dnswire.
package dnscache

import (
	"container/list"
	"encoding/binary"
	"strings"
	"sync"
	"time"

	"github.com/flowguard/flowguard/dnswire"
)

// DefaultCapacity is the default bound on the number of cached
// responses, defaulting to 2048.
const DefaultCapacity = 2048

type questionKey struct {
	name  string
	qtype dnswire.RecordType
	class uint16
}

type entry struct {
	key       questionKey
	data      []byte
	expiresAt time.Time
}

// ResponseCache is a bounded, TTL-aware LRU cache of encoded DNS
// responses keyed by question. Capacity is an exact bound at all times:
// it never holds more than capacity entries, which rules out a
// probabilistic cache (ristretto) as an implementation choice here.
type ResponseCache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	items    map[questionKey]*list.Element
}

// NewResponseCache builds a cache with the given capacity. A
// non-positive capacity falls back to DefaultCapacity.
func NewResponseCache(capacity int) *ResponseCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ResponseCache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[questionKey]*list.Element),
	}
}

// Store decodes a raw response and, if it carries at least one A/AAAA
// answer and QR=1, inserts it keyed by its first question. Zero TTL,
// truncated responses, and responses with no A/AAAA are silently
// skipped.
func (c *ResponseCache) Store(raw []byte) {
	msg, ok := dnswire.Decode(raw)
	if !ok || !msg.Header.IsResponse() || msg.Header.Truncated() {
		return
	}
	if len(msg.Questions) == 0 {
		return
	}

	var minTTL uint32
	haveAddr := false
	for _, a := range msg.Answers {
		if a.Type != dnswire.TypeA && a.Type != dnswire.TypeAAAA {
			continue
		}
		if !haveAddr || a.TTL < minTTL {
			minTTL = a.TTL
		}
		haveAddr = true
	}
	if !haveAddr || minTTL == 0 {
		return
	}

	q := msg.Questions[0]
	key := questionKey{name: strings.ToLower(q.Name), qtype: q.Type, class: q.Class}

	data := append([]byte(nil), raw...)
	e := entry{key: key, data: data, expiresAt: time.Now().Add(time.Duration(minTTL) * time.Second)}

	c.mu.Lock()
	defer c.mu.Unlock()
	if el, exists := c.items[key]; exists {
		c.ll.Remove(el)
		delete(c.items, key)
	}
	el := c.ll.PushFront(e)
	c.items[key] = el
	for c.ll.Len() > c.capacity {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.ll.Remove(back)
		delete(c.items, back.Value.(entry).key)
	}
}

// BuildResponse decodes a raw query, looks up its question, and if a
// live cache entry exists returns an owned byte image equal to the
// cached response with the transaction id rewritten to the query's.
func (c *ResponseCache) BuildResponse(rawQuery []byte) ([]byte, bool) {
	if len(rawQuery) < 12 {
		return nil, false
	}
	msg, ok := dnswire.Decode(rawQuery)
	if !ok || len(msg.Questions) == 0 {
		return nil, false
	}
	q := msg.Questions[0]
	key := questionKey{name: strings.ToLower(q.Name), qtype: q.Type, class: q.Class}

	c.mu.Lock()
	el, exists := c.items[key]
	if !exists {
		c.mu.Unlock()
		return nil, false
	}
	e := el.Value.(entry)
	if time.Now().After(e.expiresAt) {
		c.ll.Remove(el)
		delete(c.items, key)
		c.mu.Unlock()
		return nil, false
	}
	c.ll.MoveToFront(el)
	resp := append([]byte(nil), e.data...)
	c.mu.Unlock()

	binary.BigEndian.PutUint16(resp[0:2], msg.Header.ID)
	return resp, true
}

// Len reports the current number of stored entries. An expired entry
// still counts until a lookup of its question evicts it.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Clear removes every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[questionKey]*list.Element)
}
