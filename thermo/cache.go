package thermo

import (
	"container/list"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/TimothyStiles/nupack/base"
	"lukechampine.com/blake3"
)

// Fingerprint content-addresses a thermodynamic evaluation: sequence,
// enforced pairs, and model key all participate, following
// Blake3SequenceHash's (hash.go) convention of hashing the canonical
// sequence string with blake3.Sum256.
func Fingerprint(seq []base.Base, enforced []Pair, modelKey string) string {
	var buf []byte
	buf = append(buf, base.FormatSequence(seq)...)
	buf = append(buf, 0)
	buf = append(buf, modelKey...)
	var scratch [4]byte
	for _, p := range enforced {
		buf = append(buf, 0)
		binary.LittleEndian.PutUint16(scratch[:2], uint16(p.I))
		binary.LittleEndian.PutUint16(scratch[2:], uint16(p.J))
		buf = append(buf, scratch[:]...)
	}
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	key       string
	logPfunc  float64
	hasLog    bool
	probs     [][]float64
	hasProbs  bool
}

// Cache is a bounded, fingerprint-keyed LRU memoization layer in front of
// an Engine. Re-evaluating the same (sequence, enforced pairs, model)
// triple — common across the optimizer's reseed/redecompose cycles — is
// served from memory instead of re-running the DP.
type Cache struct {
	engine  Engine
	maxSize int

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List
}

// NewCache wraps engine with an LRU cache holding up to maxSize distinct
// fingerprints.
func NewCache(engine Engine, maxSize int) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &Cache{
		engine:  engine,
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

func (c *Cache) lookup(key string) (*cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry), true
}

func (c *Cache) store(entry *cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[entry.key]; ok {
		el.Value = entry
		c.order.MoveToFront(el)
		return
	}
	el := c.order.PushFront(entry)
	c.entries[entry.key] = el
	for len(c.entries) > c.maxSize {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// LogPfunc implements Engine, serving from cache when the fingerprint of
// (seq, enforced, m.Key) has already been evaluated.
func (c *Cache) LogPfunc(seq []base.Base, enforced []Pair, m Model) (float64, error) {
	key := Fingerprint(seq, enforced, m.Key)
	if entry, ok := c.lookup(key); ok && entry.hasLog {
		return entry.logPfunc, nil
	}
	v, err := c.engine.LogPfunc(seq, enforced, m)
	if err != nil {
		return 0, fmt.Errorf("thermo: cache miss evaluation failed: %w", err)
	}
	if entry, ok := c.lookup(key); ok {
		entry.logPfunc, entry.hasLog = v, true
		c.store(entry)
	} else {
		c.store(&cacheEntry{key: key, logPfunc: v, hasLog: true})
	}
	return v, nil
}

// PairProbabilities implements Engine, serving from cache the same way as
// LogPfunc.
func (c *Cache) PairProbabilities(seq []base.Base, enforced []Pair, m Model) ([][]float64, error) {
	key := Fingerprint(seq, enforced, m.Key)
	if entry, ok := c.lookup(key); ok && entry.hasProbs {
		return entry.probs, nil
	}
	v, err := c.engine.PairProbabilities(seq, enforced, m)
	if err != nil {
		return nil, fmt.Errorf("thermo: cache miss evaluation failed: %w", err)
	}
	if entry, ok := c.lookup(key); ok {
		entry.probs, entry.hasProbs = v, true
		c.store(entry)
	} else {
		c.store(&cacheEntry{key: key, probs: v, hasProbs: true})
	}
	return v, nil
}
