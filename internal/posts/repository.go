package posts

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-freeze/internal/logging"
	"github.com/goliatone/go-freeze/internal/metrics"
	"github.com/goliatone/go-freeze/pkg/interfaces"
)

// CollisionPolicy decides what happens when two files produce the same slug.
type CollisionPolicy string

const (
	// CollisionSuffix keeps the first file's slug and appends -2, -3, ... to
	// later ones in scan order.
	CollisionSuffix CollisionPolicy = "suffix"
	// CollisionOverwrite keeps duplicate slugs; slug lookups resolve to the
	// last record in publication order.
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// ParseCollisionPolicy maps a configured name onto a policy. An empty name
// selects CollisionSuffix.
func ParseCollisionPolicy(name string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", CollisionSuffix:
		return CollisionSuffix, nil
	case CollisionOverwrite:
		return CollisionOverwrite, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollisionPolicy, name)
}

// Loader yields snapshots of a collection.
type Loader interface {
	Load(ctx context.Context, force bool) (*Snapshot, error)
}

// RepositoryOption customises a Repository.
type RepositoryOption func(*Repository)

// WithLogger sets the logger used for load diagnostics.
func WithLogger(logger interfaces.Logger) RepositoryOption {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder metrics.Recorder) RepositoryOption {
	return func(r *Repository) {
		r.recorder = metrics.OrNoop(recorder)
	}
}

// WithCollisionPolicy overrides the default CollisionSuffix policy.
func WithCollisionPolicy(policy CollisionPolicy) RepositoryOption {
	return func(r *Repository) {
		if policy != "" {
			r.collisions = policy
		}
	}
}

// WithClock overrides the clock used to stamp snapshots.
func WithClock(now func() time.Time) RepositoryOption {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}

// Repository owns the cached snapshot of one collection.
type Repository struct {
	name       string
	source     Source
	builder    *Builder
	collisions CollisionPolicy
	logger     interfaces.Logger
	recorder   metrics.Recorder
	now        func() time.Time

	mu       sync.Mutex
	snapshot *Snapshot
}

// NewRepository wires a collection source to its builder.
func NewRepository(name string, source Source, builder *Builder, opts ...RepositoryOption) *Repository {
	repo := &Repository{
		name:       name,
		source:     source,
		builder:    builder,
		collisions: CollisionSuffix,
		logger:     logging.NoOp(),
		recorder:   metrics.NoopRecorder{},
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo
}

// Name returns the collection name.
func (r *Repository) Name() string {
	return r.name
}

// Builder returns the record builder of the collection.
func (r *Repository) Builder() *Builder {
	return r.builder
}

// Dir returns the content directory when the source is on disk, else "".
func (r *Repository) Dir() string {
	if located, ok := r.source.(interface{ Dir() string }); ok {
		return located.Dir()
	}
	return ""
}

// Load returns the cached snapshot, building it when the cache is empty or
// force is set. A failed load leaves the previous cache in place.
func (r *Repository) Load(ctx context.Context, force bool) (*Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.snapshot != nil && !force {
		return r.snapshot, nil
	}
	snapshot, err := r.build(ctx)
	if err != nil {
		return nil, err
	}
	r.snapshot = snapshot
	return snapshot, nil
}

// Reload rebuilds the snapshot unconditionally.
func (r *Repository) Reload(ctx context.Context) (*Snapshot, error) {
	return r.Load(ctx, true)
}

// Invalidate drops the cached snapshot; the next Load rebuilds it.
func (r *Repository) Invalidate() {
	r.mu.Lock()
	r.snapshot = nil
	r.mu.Unlock()
}

// Index loads the collection and projects it into listing entries.
func (r *Repository) Index(ctx context.Context, force bool) ([]IndexEntry, error) {
	snapshot, err := r.Load(ctx, force)
	if err != nil {
		return nil, err
	}
	return BuildIndex(snapshot), nil
}

func (r *Repository) build(ctx context.Context) (*Snapshot, error) {
	started := r.now()
	logger := logging.WithCollection(r.logger.WithContext(ctx), r.name, "")

	if err := r.source.Ensure(ctx); err != nil {
		logger.Error("posts.load.failed", "error", err)
		return nil, err
	}
	files, err := r.source.List(ctx)
	if err != nil {
		logger.Error("posts.load.failed", "error", err)
		return nil, err
	}

	records := make([]*Record, 0, len(files))
	var skipped []string
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.buildFile(ctx, file)
		if err != nil {
			logging.WithCollection(logger, r.name, file.Path).Warn("posts.file.skipped", "error", err)
			skipped = append(skipped, file.Path)
			continue
		}
		records = append(records, record)
	}

	records = r.resolveCollisions(logger, records)
	sortRecords(records)

	snapshot := newSnapshot(r.name, records, skipped, r.now())
	elapsed := r.now().Sub(started)
	r.recorder.ObserveLoad(r.name, len(records), len(skipped), elapsed)
	logger.Info("posts.load.completed",
		"loaded", len(records),
		"skipped", len(skipped),
		"duration", elapsed,
	)
	return snapshot, nil
}

// buildFile isolates a single file so that neither an error nor a panic in
// parsing or normalization aborts the load.
func (r *Repository) buildFile(ctx context.Context, file File) (record *Record, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			record = nil
			err = fmt.Errorf("posts: build %s: panic: %v", file.Path, recovered)
		}
	}()

	data, err := r.source.ReadFile(ctx, file.Path)
	if err != nil {
		return nil, fmt.Errorf("posts: read %s: %w", file.Path, err)
	}
	return r.builder.Build(file, data)
}

func (r *Repository) resolveCollisions(logger interfaces.Logger, records []*Record) []*Record {
	if r.collisions == CollisionOverwrite {
		seen := make(map[string]string, len(records))
		for _, record := range records {
			if first, ok := seen[record.Slug]; ok {
				logging.WithCollection(logger, r.name, record.SourcePath).
					Warn("posts.slug.collision", "slug", record.Slug, "shadows", first)
			}
			seen[record.Slug] = record.SourcePath
		}
		return records
	}

	taken := make(map[string]struct{}, len(records))
	for _, record := range records {
		taken[record.Slug] = struct{}{}
	}
	claimed := make(map[string]struct{}, len(records))
	out := make([]*Record, 0, len(records))
	for _, record := range records {
		if _, dup := claimed[record.Slug]; !dup {
			claimed[record.Slug] = struct{}{}
			out = append(out, record)
			continue
		}
		slug := nextFreeSlug(record.Slug, taken)
		taken[slug] = struct{}{}
		claimed[slug] = struct{}{}
		logging.WithCollection(logger, r.name, record.SourcePath).
			Warn("posts.slug.collision", "slug", record.Slug, "assigned", slug)
		out = append(out, r.builder.withSlug(record, slug))
	}
	return out
}

func nextFreeSlug(base string, taken map[string]struct{}) string {
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate
		}
	}
}

// sortRecords orders dated records newest first, followed by undated records
// in scan order.
func sortRecords(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.HasDate != b.HasDate {
			return a.HasDate
		}
		if !a.HasDate {
			return false
		}
		return a.Date.After(b.Date)
	})
}
