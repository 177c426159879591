package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gpml/i18nsync/internal/record"
	"github.com/gpml/i18nsync/internal/tracker"
	"github.com/gpml/i18nsync/internal/transform"
)

// Options configures a Reconciler.
type Options struct {
	// Namespace scopes record ids. Required.
	Namespace string

	// Kind selects how documents are turned into records. Required.
	Kind record.Kind

	// Root is the directory FullSync walks. Required.
	Root string

	// Registry resolves transformers by extension.
	// Defaults to transform.Default().
	Registry *transform.Registry

	// Tracker holds the per-file record sets. Defaults to a new tracker.
	Tracker *tracker.Tracker

	// Priority is stored on translation records.
	Priority int

	// Logger receives progress and failure messages.
	// Defaults to a stderr logger.
	Logger *log.Logger

	// OnFailure, if set, is called for every per-file failure.
	OnFailure func(*Failure)
}

// Result summarizes one pass over one file.
type Result struct {
	Path      string
	Created   int
	Deleted   int
	Unchanged int
	Ignored   bool
}

// Summary aggregates the results of a FullSync.
type Summary struct {
	Files     int
	Created   int
	Deleted   int
	Unchanged int
	Ignored   int
	Failures  []*Failure
}

func (s *Summary) add(res Result, err error) {
	s.Files++
	s.Created += res.Created
	s.Deleted += res.Deleted
	s.Unchanged += res.Unchanged
	if res.Ignored {
		s.Ignored++
	}
	var f *Failure
	if errors.As(err, &f) {
		s.Failures = append(s.Failures, f)
	}
}

// Reconciler synchronizes one source root with a Sink.
type Reconciler struct {
	sink      Sink
	namespace string
	kind      record.Kind
	root      string
	priority  int
	registry  *transform.Registry
	tracker   *tracker.Tracker
	logger    *log.Logger
	onFailure func(*Failure)
}

// New creates a Reconciler writing to sink.
func New(sink Sink, opts Options) (*Reconciler, error) {
	if sink == nil {
		return nil, fmt.Errorf("sink cannot be nil")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if !opts.Kind.Valid() {
		return nil, fmt.Errorf("invalid record kind %q", opts.Kind)
	}
	if opts.Root == "" {
		return nil, fmt.Errorf("root is required")
	}
	if opts.Priority < 0 {
		return nil, fmt.Errorf("priority must be >= 0, got %d", opts.Priority)
	}

	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root: %w", err)
	}

	if opts.Registry == nil {
		opts.Registry = transform.Default()
	}
	if opts.Tracker == nil {
		opts.Tracker = tracker.New()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}

	return &Reconciler{
		sink:      sink,
		namespace: opts.Namespace,
		kind:      opts.Kind,
		root:      root,
		priority:  opts.Priority,
		registry:  opts.Registry,
		tracker:   opts.Tracker,
		logger:    opts.Logger,
		onFailure: opts.OnFailure,
	}, nil
}

// Namespace returns the namespace records are created in.
func (r *Reconciler) Namespace() string { return r.namespace }

// Kind returns the record kind this reconciler produces.
func (r *Reconciler) Kind() record.Kind { return r.kind }

// Root returns the absolute source root.
func (r *Reconciler) Root() string { return r.root }

// Tracker returns the tracker holding the per-file record sets.
func (r *Reconciler) Tracker() *tracker.Tracker { return r.tracker }

// Sync processes an add or change event for path. A path that no longer
// exists is treated as removed.
//
// Per-file problems are returned as *Failure; the sink and tracker are left
// consistent in every case.
func (r *Reconciler) Sync(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("failed to resolve path: %w", err)
	}

	unlock := r.tracker.Lock(abs)
	defer unlock()

	return r.sync(ctx, abs)
}

// Remove processes an unlink event for path: every record it produced is
// withdrawn and its tracker entry removed.
func (r *Reconciler) Remove(ctx context.Context, path string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{Path: path}, fmt.Errorf("failed to resolve path: %w", err)
	}

	unlock := r.tracker.Lock(abs)
	defer unlock()

	res := Result{Path: abs}
	if err := r.withdraw(ctx, abs, &res); err != nil {
		return res, r.report(err)
	}
	if res.Deleted > 0 {
		r.logger.Printf("Removed %s: deleted=%d", r.rel(abs), res.Deleted)
	}
	return res, nil
}

func (r *Reconciler) sync(ctx context.Context, path string) (Result, error) {
	res := Result{Path: path}

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := r.withdraw(ctx, path, &res); err != nil {
			return res, r.report(err)
		}
		return res, nil
	}
	if err != nil {
		return res, r.fail(ctx, path, &res, newFailure(path, IOError, err.Error()))
	}
	if info.IsDir() {
		res.Ignored = true
		return res, nil
	}

	t, ok := r.registry.Resolve(filepath.Ext(path))
	if !ok {
		res.Ignored = true
		return res, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := r.withdraw(ctx, path, &res); err != nil {
				return res, r.report(err)
			}
			return res, nil
		}
		return res, r.fail(ctx, path, &res, newFailure(path, IOError, err.Error()))
	}

	// An empty file is a file in the middle of being written or
	// intentionally blank. Either way it holds no records.
	if len(data) == 0 {
		if err := r.withdraw(ctx, path, &res); err != nil {
			return res, r.report(err)
		}
		return res, nil
	}

	doc, err := t.Parse(data)
	if err != nil {
		return res, r.fail(ctx, path, &res, newFailure(path, ParseError, err.Error()))
	}

	src := record.Source{Namespace: r.namespace, Path: path, Priority: r.priority}
	records, violations := record.Extract(r.kind, doc, src)
	if len(violations) > 0 {
		return res, r.fail(ctx, path, &res, newFailure(path, ValidationError, violations...))
	}

	if err := r.apply(ctx, path, records, &res); err != nil {
		return res, r.report(err)
	}

	if res.Created > 0 || res.Deleted > 0 {
		r.logger.Printf("Synced %s: created=%d deleted=%d unchanged=%d",
			r.rel(path), res.Created, res.Deleted, res.Unchanged)
	}
	return res, nil
}

// apply diffs records against the tracked set for path and emits the
// difference: deletes first, then creates.
func (r *Reconciler) apply(ctx context.Context, path string, records []*record.Record, res *Result) error {
	old := r.tracker.Get(path)

	next := make(map[string]*record.Record, len(records))
	for _, rec := range records {
		next[rec.ID] = rec
	}

	entry := make(map[string]string, len(records))
	var sinkErrs []string

	for _, id := range sortedIDs(old) {
		if _, keep := next[id]; keep {
			continue
		}
		if err := r.sink.Delete(ctx, id); err != nil {
			entry[id] = old[id]
			sinkErrs = append(sinkErrs, fmt.Sprintf("delete %s: %v", id, err))
			continue
		}
		res.Deleted++
	}

	for _, rec := range records {
		fp := record.Fingerprint(rec)
		if prev, tracked := old[rec.ID]; tracked && prev == fp {
			entry[rec.ID] = prev
			res.Unchanged++
			continue
		}
		if err := r.sink.Create(ctx, rec); err != nil {
			if prev, tracked := old[rec.ID]; tracked {
				entry[rec.ID] = prev
			}
			sinkErrs = append(sinkErrs, fmt.Sprintf("create %s (%s): %v", rec.ID, rec.Key, err))
			continue
		}
		entry[rec.ID] = fp
		res.Created++
	}

	if err := r.tracker.Set(path, entry); err != nil {
		return fmt.Errorf("failed to track %s: %w", path, err)
	}

	if len(sinkErrs) > 0 {
		return newFailure(path, SinkError, sinkErrs...)
	}
	return nil
}

// withdraw deletes every record tracked for path. Ids the sink refused to
// delete stay tracked.
func (r *Reconciler) withdraw(ctx context.Context, path string, res *Result) error {
	old := r.tracker.Get(path)
	if len(old) == 0 {
		r.tracker.Delete(path)
		return nil
	}

	remaining := make(map[string]string)
	var sinkErrs []string
	for _, id := range sortedIDs(old) {
		if err := r.sink.Delete(ctx, id); err != nil {
			remaining[id] = old[id]
			sinkErrs = append(sinkErrs, fmt.Sprintf("delete %s: %v", id, err))
			continue
		}
		res.Deleted++
	}

	if err := r.tracker.Set(path, remaining); err != nil {
		return fmt.Errorf("failed to track %s: %w", path, err)
	}

	if len(sinkErrs) > 0 {
		return newFailure(path, SinkError, sinkErrs...)
	}
	return nil
}

// fail withdraws the records of path and reports f. A sink failure during
// the withdrawal is reported separately.
func (r *Reconciler) fail(ctx context.Context, path string, res *Result, f *Failure) error {
	if err := r.withdraw(ctx, path, res); err != nil {
		r.report(err)
	}
	return r.report(f)
}

func (r *Reconciler) report(err error) error {
	var f *Failure
	if !errors.As(err, &f) {
		r.logger.Printf("ERROR: %v", err)
		return err
	}

	r.logger.Printf("WARNING: %s %s", f.Kind, r.rel(f.Path))
	for _, d := range f.Details {
		r.logger.Printf("  - %s", d)
	}
	if r.onFailure != nil {
		r.onFailure(f)
	}
	return f
}

// FullSync processes every file under the root, then withdraws the records
// of tracked files that no longer exist. Per-file failures are collected in
// the summary; the returned error is reserved for walk and context errors.
func (r *Reconciler) FullSync(ctx context.Context) (Summary, error) {
	r.logger.Printf("Starting full sync of %s (%s)", r.root, r.namespace)

	var summary Summary
	seen := make(map[string]struct{})

	if _, err := os.Stat(r.root); errors.Is(err, fs.ErrNotExist) {
		r.logger.Printf("Source directory doesn't exist: %s (skipping)", r.root)
	} else {
		err := filepath.WalkDir(r.root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == r.root {
					return err
				}
				r.logger.Printf("WARNING: Failed to read %s: %v", r.rel(path), err)
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != r.root && SkipName(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if SkipName(d.Name()) || !d.Type().IsRegular() {
				return nil
			}

			seen[path] = struct{}{}
			res, err := r.Sync(ctx, path)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			summary.add(res, err)
			return nil
		})
		if err != nil {
			return summary, fmt.Errorf("failed to walk %s: %w", r.root, err)
		}
	}

	for _, path := range r.tracker.Paths() {
		if _, ok := seen[path]; ok {
			continue
		}
		res, err := r.Sync(ctx, path)
		if err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.add(res, err)
	}

	r.logger.Printf("Full sync complete: files=%d created=%d deleted=%d unchanged=%d failed=%d",
		summary.Files, summary.Created, summary.Deleted, summary.Unchanged, len(summary.Failures))
	return summary, nil
}

// Prune deletes records of this reconciler's namespace and kind that the
// sink holds but no tracked file produced, such as records left behind by
// a previous process. It should run after FullSync. Each candidate is
// checked under the lock of its source path, so Prune may run while passes
// are in flight. Returns the number of records deleted.
func (r *Reconciler) Prune(ctx context.Context, q Querier) (int, error) {
	records, err := q.QueryAll(ctx, r.kind)
	if err != nil {
		return 0, fmt.Errorf("failed to query records: %w", err)
	}

	pruned := 0
	for _, rec := range records {
		if rec.Namespace != r.namespace {
			continue
		}
		deleted, err := r.pruneOne(ctx, rec)
		if err != nil {
			return pruned, err
		}
		if deleted {
			pruned++
		}
	}

	if pruned > 0 {
		r.logger.Printf("Pruned %d orphaned record(s) from %s", pruned, r.namespace)
	}
	return pruned, nil
}

// pruneOne deletes rec unless a file owns it. The lock of the record's
// source path is held so a pass creating the record cannot interleave.
func (r *Reconciler) pruneOne(ctx context.Context, rec *record.Record) (bool, error) {
	if rec.SourcePath != "" {
		unlock := r.tracker.Lock(rec.SourcePath)
		defer unlock()
	}
	if _, tracked := r.tracker.Owner(rec.ID); tracked {
		return false, nil
	}
	if err := r.sink.Delete(ctx, rec.ID); err != nil {
		return false, fmt.Errorf("failed to prune %s: %w", rec.ID, err)
	}
	return true, nil
}

func (r *Reconciler) rel(path string) string {
	if rel, err := filepath.Rel(r.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// SkipName reports whether a file or directory name belongs to editor
// scratch files, hidden entries or temporary files that are never sources.
func SkipName(name string) bool {
	switch {
	case name == "":
		return true
	case strings.HasPrefix(name, "."):
		return true
	case strings.HasSuffix(name, "~"):
		return true
	case strings.HasSuffix(name, ".swp"), strings.HasSuffix(name, ".swx"), strings.HasSuffix(name, ".tmp"):
		return true
	case strings.HasPrefix(name, "#") && strings.HasSuffix(name, "#"):
		return true
	}
	return false
}

func sortedIDs(m map[string]string) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
