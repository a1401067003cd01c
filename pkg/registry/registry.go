// Package registry maintains the current immutable snapshot of valid tools
// assembled from a directory of source documents, and hot-reloads that
// snapshot as documents change.
//
// The reload trigger itself (a filesystem watcher) is an external
// collaborator — this package only exposes Reload() for something else to
// call; it does not watch anything on its own.
package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/Mindburn-Labs/caprouter/pkg/tool"
)

// Snapshot is an immutable, ordered view of the registry as of a point in
// time. Readers must not mutate the returned slice.
type Snapshot struct {
	Tools     []tool.Tool
	UpdatedAt time.Time
}

// Digest returns a short content hash of the snapshot's tool IDs and
// versions. It is diagnostic only — nothing in the registry's invariants
// depends on it — and exists so a reload can log whether the published
// tool set actually changed.
func (s Snapshot) Digest() string {
	h := sha256.New()
	for _, t := range s.Tools {
		fmt.Fprintf(h, "%s@%s\n", t.ID, t.Version)
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// gaugeMetric and counterMetric let the loader report into any metrics
// backend that exposes Prometheus-shaped Set/Inc, without importing the
// metrics package directly.
type gaugeMetric interface{ Set(float64) }
type counterMetric interface{ Inc() }

// Loader aggregates tool documents from a directory into a Snapshot and
// republishes it atomically whenever Reload is called.
type Loader struct {
	dir      string
	logger   *slog.Logger
	current  atomic.Pointer[Snapshot]
	gaugeSet gaugeMetric
	errCount counterMetric
}

// Option configures a Loader at construction time.
type Option func(*Loader)

// WithLogger injects a structured logger; nil falls back to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.logger = l
		}
	}
}

// WithMetrics wires the tools_loaded gauge and tool_load_errors_total
// counter instruments described in the metrics registry.
func WithMetrics(toolsLoaded gaugeMetric, toolLoadErrors counterMetric) Option {
	return func(ld *Loader) {
		ld.gaugeSet = toolsLoaded
		ld.errCount = toolLoadErrors
	}
}

// NewLoader creates a Loader rooted at dir. Start (or Reload) must be called
// before List/GetRegistry return anything meaningful.
func NewLoader(dir string, opts ...Option) *Loader {
	ld := &Loader{dir: dir, logger: slog.Default()}
	for _, opt := range opts {
		opt(ld)
	}
	empty := &Snapshot{UpdatedAt: time.Time{}}
	ld.current.Store(empty)
	return ld
}

// Start performs the initial load and publishes the first snapshot.
func (l *Loader) Start() error {
	return l.Reload()
}

// Reload rebuilds the whole snapshot from the directory contents. Rebuild
// fails as a unit: if any file fails validation, the previous snapshot is
// preserved and the error is returned with the load-error counter
// incremented.
func (l *Loader) Reload() error {
	tools, updatedAt, err := l.loadAll()
	if err != nil {
		if l.errCount != nil {
			l.errCount.Inc()
		}
		l.logger.Error("registry: reload failed, retaining previous snapshot", "error", err)
		return err
	}

	prev := l.current.Load()
	snap := &Snapshot{Tools: tools, UpdatedAt: updatedAt}
	l.current.Store(snap)
	if l.gaugeSet != nil {
		l.gaugeSet.Set(float64(len(tools)))
	}
	l.logger.Info("registry: snapshot published",
		"tool_count", len(tools),
		"updated_at", updatedAt,
		"digest_from", prev.Digest(),
		"digest_to", snap.Digest(),
	)
	return nil
}

// List returns the tools in the currently published snapshot. The slice is
// stable for the lifetime of the returned reference — callers must not
// mutate it.
func (l *Loader) List() []tool.Tool {
	return l.current.Load().Tools
}

// GetRegistry returns the currently published snapshot.
func (l *Loader) GetRegistry() Snapshot {
	return *l.current.Load()
}

func (l *Loader) loadAll() ([]tool.Tool, time.Time, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("registry: read dir %s: %w", l.dir, err)
	}

	byID := make(map[string]tool.Tool)
	var latest time.Time

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names) // deterministic processing order for reproducible tie-breaks

	for _, name := range names {
		ext := strings.ToLower(filepath.Ext(name))
		isYAML := ext == ".yaml" || ext == ".yml"
		isJSON := ext == ".json"
		if !isYAML && !isJSON {
			continue // unknown extensions are ignored per the document-shape contract
		}

		path := filepath.Join(l.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("registry: read %s: %w", name, err)
		}

		raw, err := tool.DecodeYAMLOrJSON(data, isYAML)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("registry: parse %s: %w", name, err)
		}

		fileTools, fileUpdatedAt, err := classifyDocument(raw)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("registry: validate %s: %w", name, err)
		}

		for _, t := range fileTools {
			if err := mergeTool(byID, t); err != nil {
				return nil, time.Time{}, fmt.Errorf("registry: %s: %w", name, err)
			}
		}
		if fileUpdatedAt.After(latest) {
			latest = fileUpdatedAt
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]tool.Tool, 0, len(ids))
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out, latest, nil
}

// classifyDocument decides whether a decoded file is a registry document
// ({tools, updatedAt}) or a single tool document, and validates it
// accordingly.
func classifyDocument(raw any) ([]tool.Tool, time.Time, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("document is not an object")
	}

	if _, hasTools := m["tools"]; hasTools {
		doc, err := tool.ValidateRegistryDocument(raw)
		if err != nil {
			return nil, time.Time{}, err
		}
		updatedAt, err := time.Parse(time.RFC3339, doc.UpdatedAt)
		if err != nil {
			return nil, time.Time{}, fmt.Errorf("updatedAt is not RFC-3339: %w", err)
		}
		return doc.Tools, updatedAt, nil
	}

	t, err := tool.ValidateToolDocument(raw)
	if err != nil {
		return nil, time.Time{}, err
	}
	return []tool.Tool{*t}, time.Time{}, nil
}

// mergeTool inserts t into byID, resolving a duplicate tool ID
// deterministically by keeping the higher semantic version (ties keep the
// first one seen, matching the loader's otherwise deterministic file
// processing order).
func mergeTool(byID map[string]tool.Tool, t tool.Tool) error {
	existing, ok := byID[t.ID]
	if !ok {
		byID[t.ID] = t
		return nil
	}

	newer, err := isNewerVersion(t.Version, existing.Version)
	if err != nil {
		// Non-semver version strings: keep the first one seen rather than
		// failing the whole rebuild over an unparsable version field.
		return nil
	}
	if newer {
		byID[t.ID] = t
	}
	return nil
}

func isNewerVersion(candidate, incumbent string) (bool, error) {
	cv, err := semver.NewVersion(candidate)
	if err != nil {
		return false, err
	}
	iv, err := semver.NewVersion(incumbent)
	if err != nil {
		return false, err
	}
	return cv.GreaterThan(iv), nil
}
