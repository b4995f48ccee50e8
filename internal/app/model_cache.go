package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/singleflight"

	"github.com/okian/mmo/internal/domain/scoring"
	"github.com/okian/mmo/pkg/logger"
	"github.com/okian/mmo/pkg/metrics"
)

// ModelLoader produces a ready Predictor.
type ModelLoader func(ctx context.Context) (scoring.Predictor, error)

// ModelCache hands out the current predictor. With caching off every Get
// loads the artifact again; with caching on concurrent misses share one load
// and the cached model is dropped when the watched file changes.
type ModelCache struct {
	load    ModelLoader
	caching bool
	path    string
	log     logger.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	current scoring.Predictor
	gen     uint64 // bumped by Invalidate

	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewModelCache wraps load. path, when non-empty, is the artifact file to
// watch for changes once Watch is called.
func NewModelCache(load ModelLoader, caching bool, path string, log logger.Logger) *ModelCache {
	if log == nil {
		log = logger.Nop()
	}
	return &ModelCache{load: load, caching: caching, path: path, log: log}
}

// Get returns the predictor, loading it if needed.
func (c *ModelCache) Get(ctx context.Context) (scoring.Predictor, error) {
	if c.caching {
		c.mu.RLock()
		p := c.current
		c.mu.RUnlock()
		if p != nil {
			return p, nil
		}
	}

	v, err, _ := c.group.Do("model", func() (interface{}, error) {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		start := time.Now()
		p, err := c.load(ctx)
		ms := float64(time.Since(start).Milliseconds())
		if err != nil {
			metrics.RecordModelLoad("error", ms)
			c.log.Error(ctx, "model load failed", logger.Error(err))
			return nil, err
		}
		metrics.RecordModelLoad("ok", ms)
		c.log.Info(ctx, "model loaded",
			logger.String("version", scoring.VersionOf(p)),
			logger.Float64("latency_ms", ms))
		if c.caching {
			c.mu.Lock()
			if c.gen == gen {
				c.current = p
			}
			c.mu.Unlock()
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(scoring.Predictor), nil
}

// Invalidate drops the cached predictor.
func (c *ModelCache) Invalidate() {
	c.mu.Lock()
	had := c.current != nil
	c.current = nil
	c.gen++
	c.mu.Unlock()
	if had {
		metrics.RecordModelInvalidation()
	}
}

// Watch starts invalidating the cache when the artifact changes. The
// directory is watched so editors that replace the file are seen too.
func (c *ModelCache) Watch(ctx context.Context) error {
	if !c.caching || c.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(c.path)); err != nil {
		_ = w.Close()
		return err
	}
	c.watcher = w
	c.stopCh = make(chan struct{})
	c.doneCh = make(chan struct{})
	go c.run(ctx)
	c.log.Info(ctx, "watching model artifact", logger.String("path", c.path))
	return nil
}

func (c *ModelCache) run(ctx context.Context) {
	defer close(c.doneCh)
	target := filepath.Clean(c.path)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				c.log.Info(ctx, "model artifact changed", logger.String("op", ev.Op.String()))
				c.Invalidate()
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn(ctx, "model watcher error", logger.Error(err))
		}
	}
}

// Close stops the watcher.
func (c *ModelCache) Close() error {
	if c.watcher == nil {
		return nil
	}
	close(c.stopCh)
	<-c.doneCh
	err := c.watcher.Close()
	c.watcher = nil
	return err
}
