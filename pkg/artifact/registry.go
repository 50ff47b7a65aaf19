package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"
)

// Pointer names the production bundle. It is the last object written by a
// publish, so whatever it references is already complete.
type Pointer struct {
	Version     string    `json:"version"`
	Key         string    `json:"key"`
	PublishedAt time.Time `json:"published_at"`
	R2          float64   `json:"r2"`
}

// Registry is a versioned model store on top of a Store:
//
//	<prefix>/versions/<version>/bundle.gob
//	<prefix>/versions/<version>/metrics.json
//	<prefix>/current.json
type Registry struct {
	store  Store
	prefix string
	keep   int
	log    *slog.Logger
	now    func() time.Time
}

func NewRegistry(store Store, prefix string, keep int, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{store: store, prefix: strings.Trim(prefix, "/"), keep: keep, log: log, now: time.Now}
}

// NewVersion returns a sortable version name for a run started at t.
func NewVersion(t time.Time, runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	return t.UTC().Format("20060102T150405Z") + "-" + id
}

func (r *Registry) key(parts ...string) string {
	return path.Join(append([]string{r.prefix}, parts...)...)
}

func (r *Registry) pointerKey() string { return r.key("current.json") }

// Publish writes the bundle and its metrics under a fresh version key and then
// swaps the pointer. A failure before the swap leaves the previous production
// bundle authoritative.
func (r *Registry) Publish(ctx context.Context, b *Bundle) (Pointer, error) {
	if b.Version == "" {
		return Pointer{}, errors.New("artifact: bundle has no version")
	}
	body, err := b.MarshalBinary()
	if err != nil {
		return Pointer{}, err
	}
	bundleKey := r.key("versions", b.Version, "bundle.gob")
	if err := r.store.Put(ctx, bundleKey, body); err != nil {
		return Pointer{}, fmt.Errorf("artifact: write bundle: %w", err)
	}
	metrics, err := json.MarshalIndent(b.Metrics, "", "  ")
	if err != nil {
		return Pointer{}, err
	}
	if err := r.store.Put(ctx, r.key("versions", b.Version, "metrics.json"), metrics); err != nil {
		return Pointer{}, fmt.Errorf("artifact: write metrics: %w", err)
	}

	ptr := Pointer{Version: b.Version, Key: bundleKey, PublishedAt: r.now().UTC(), R2: b.Metrics.R2}
	raw, err := json.Marshal(ptr)
	if err != nil {
		return Pointer{}, err
	}
	if err := r.store.Put(ctx, r.pointerKey(), raw); err != nil {
		return Pointer{}, fmt.Errorf("artifact: swap pointer: %w", err)
	}
	r.log.Info("model published", "version", b.Version, "key", bundleKey, "r2", b.Metrics.R2)

	if r.keep > 0 {
		if err := r.prune(ctx, b.Version); err != nil {
			r.log.Warn("prune old versions failed", "err", err)
		}
	}
	return ptr, nil
}

// Current returns the production pointer, or ErrNotFound when nothing has
// been published yet.
func (r *Registry) Current(ctx context.Context) (Pointer, error) {
	raw, err := r.store.Get(ctx, r.pointerKey())
	if err != nil {
		return Pointer{}, err
	}
	var p Pointer
	if err := json.Unmarshal(raw, &p); err != nil {
		return Pointer{}, fmt.Errorf("%w: decode pointer: %w", ErrCorrupt, err)
	}
	return p, nil
}

// Load fetches and decodes the bundle a pointer refers to.
func (r *Registry) Load(ctx context.Context, p Pointer) (*Bundle, error) {
	raw, err := r.store.Get(ctx, p.Key)
	if err != nil {
		return nil, fmt.Errorf("artifact: read bundle %s: %w", p.Version, err)
	}
	b := &Bundle{}
	if err := b.UnmarshalBinary(raw); err != nil {
		return nil, err
	}
	return b, nil
}

// LoadCurrent loads the production bundle.
func (r *Registry) LoadCurrent(ctx context.Context) (*Bundle, error) {
	p, err := r.Current(ctx)
	if err != nil {
		return nil, err
	}
	return r.Load(ctx, p)
}

// Versions lists published versions, oldest first.
func (r *Registry) Versions(ctx context.Context) ([]string, error) {
	base := r.key("versions") + "/"
	keys, err := r.store.List(ctx, base)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, k := range keys {
		v, _, ok := strings.Cut(strings.TrimPrefix(k, base), "/")
		if ok && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out, nil
}

// prune drops all but the newest keep versions. The live version is never removed.
func (r *Registry) prune(ctx context.Context, live string) error {
	versions, err := r.Versions(ctx)
	if err != nil {
		return err
	}
	if len(versions) <= r.keep {
		return nil
	}
	for _, v := range versions[:len(versions)-r.keep] {
		if v == live {
			continue
		}
		for _, name := range []string{"bundle.gob", "metrics.json"} {
			if err := r.store.Delete(ctx, r.key("versions", v, name)); err != nil {
				return err
			}
		}
		r.log.Debug("pruned model version", "version", v)
	}
	return nil
}
