package artifacts

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youruser/emsapp/internal/credential"
)

const DefaultTTL = 15 * time.Minute

var ErrExpired = errors.New("download expired")

type handle struct {
	key       string
	filename  string
	expiresAt time.Time
}

// Downloads issues one-shot download handles for delivered artifacts. A
// handle is revoked on its first successful claim or when its TTL passes.
type Downloads struct {
	store     Store
	ttl       time.Duration
	urlPrefix string
	logger    *log.Logger
	now       func() time.Time

	mu      sync.Mutex
	handles map[string]handle
}

func NewDownloads(store Store, ttl time.Duration, urlPrefix string, logger *log.Logger) *Downloads {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Downloads{
		store:     store,
		ttl:       ttl,
		urlPrefix: urlPrefix,
		logger:    logger,
		now:       time.Now,
		handles:   make(map[string]handle),
	}
}

var _ credential.Deliverer = (*Downloads)(nil)

// Deliver stores the artifact and returns a receipt pointing at a fresh
// download handle.
func (d *Downloads) Deliver(ctx context.Context, a *credential.Artifact) (credential.Receipt, error) {
	id := uuid.NewString()
	key := "downloads/" + id
	obj := Object{
		Key:         key,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Data:        a.Bytes(),
		CreatedAt:   d.now().UTC(),
	}
	if err := d.store.Put(ctx, obj); err != nil {
		return credential.Receipt{}, &credential.IOError{Op: "store " + a.Filename, Err: err}
	}

	d.mu.Lock()
	d.handles[id] = handle{key: key, filename: a.Filename, expiresAt: d.now().Add(d.ttl)}
	d.mu.Unlock()

	return credential.Receipt{
		ID:       id,
		Filename: a.Filename,
		URL:      d.urlPrefix + id,
		Pages:    a.PageCount(),
	}, nil
}

// Claim returns the artifact behind id and revokes the handle.
func (d *Downloads) Claim(ctx context.Context, id string) (*Object, error) {
	d.mu.Lock()
	h, ok := d.handles[id]
	if ok {
		delete(d.handles, id)
	}
	d.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	if d.now().After(h.expiresAt) {
		d.release(ctx, h)
		return nil, ErrExpired
	}

	obj, err := d.store.Get(ctx, h.key)
	if err != nil {
		// put the handle back so a transient store error can be retried
		d.mu.Lock()
		d.handles[id] = h
		d.mu.Unlock()
		return nil, fmt.Errorf("claim %s: %w", id, err)
	}
	if obj.Filename == "" {
		obj.Filename = h.filename
	}
	d.release(ctx, h)
	return obj, nil
}

// Pending reports the number of unclaimed handles.
func (d *Downloads) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.handles)
}

// Sweep releases every expired handle and returns how many were removed.
func (d *Downloads) Sweep(ctx context.Context) int {
	now := d.now()
	var expired []handle
	d.mu.Lock()
	for id, h := range d.handles {
		if now.After(h.expiresAt) {
			expired = append(expired, h)
			delete(d.handles, id)
		}
	}
	d.mu.Unlock()
	for _, h := range expired {
		d.release(ctx, h)
	}
	return len(expired)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (d *Downloads) RunSweeper(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := d.Sweep(ctx); n > 0 {
				d.logger.Printf("downloads: released %d expired handle(s)", n)
			}
		}
	}
}

func (d *Downloads) release(ctx context.Context, h handle) {
	if err := d.store.Delete(ctx, h.key); err != nil && !errors.Is(err, ErrNotFound) {
		d.logger.Printf("downloads: release %s: %v", h.key, err)
	}
}
