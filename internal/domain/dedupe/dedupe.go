// Package dedupe remembers which uploads were already scored so identical
// requests replay the stored run instead of re-running the pipeline.
package dedupe

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

const defaultMaxSize = 1000

// Fingerprint identifies an upload scored by a given model revision.
func Fingerprint(content []byte, modelVersion string) string {
	d := xxhash.New()
	_, _ = d.Write(content)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(modelVersion)
	return fmt.Sprintf("%016x", d.Sum64())
}

// Deduper maps upload fingerprints to the run that served them.
type Deduper interface {
	// Lookup returns the run recorded for key.
	Lookup(ctx context.Context, key string) (runID string, ok bool)

	// Record stores runID under key unless key is already present. It
	// reports whether key was already present; the first run wins.
	Record(ctx context.Context, key, runID string) bool

	// Forget removes key, e.g. when the recorded run can no longer be loaded.
	Forget(ctx context.Context, key string)

	Size() int64
}

// node is an entry in the insertion-ordered list.
type node struct {
	key   string
	runID string
	prev  *node
	next  *node
}

func (n *node) reset() {
	n.key, n.runID = "", ""
	n.prev, n.next = nil, nil
}

// inMemoryDeduper keeps at most maxSize keys and evicts the oldest first.
// With maxSize <= 0 it never evicts.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*node
	head     *node // oldest
	tail     *node // newest
	maxSize  int
	size     atomic.Int64
	nodePool sync.Pool
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*node)
	d.nodePool = sync.Pool{New: func() interface{} { return &node{} }}
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, ok := d.seen[key]
	if !ok {
		return "", false
	}
	return n.runID, true
}

func (d *inMemoryDeduper) Record(_ context.Context, key, runID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := d.nodePool.Get().(*node)
	n.key, n.runID = key, runID
	d.pushBack(n)
	d.seen[key] = n
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Forget(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n, ok := d.seen[key]; ok {
		d.remove(n)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.head != nil {
		d.remove(d.head)
	}
}

func (d *inMemoryDeduper) pushBack(n *node) {
	n.prev = d.tail
	if d.tail != nil {
		d.tail.next = n
	}
	d.tail = n
	if d.head == nil {
		d.head = n
	}
}

// Must be called with d.mu held.
func (d *inMemoryDeduper) remove(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	delete(d.seen, n.key)
	n.reset()
	d.nodePool.Put(n)
	d.size.Add(-1)
}
