package panel

import (
	"sort"
	"sync"
	"time"

	"github.com/nutriscan/arnutri-go/internal/errors"
	"github.com/nutriscan/arnutri-go/internal/nutrition"
	"github.com/nutriscan/arnutri-go/internal/observability/metrics"
)

// Reposition sources. While comparison mode is active only the layout
// engine may move panels.
const (
	SourceDrag        = "drag"
	SourceOrientation = "orientation"
	SourceCompare     = "compare"
)

// Removal reasons.
const (
	RemovalUser     = "user"
	RemovalClearAll = "clear_all"
)

// Registry is the process-wide ordered collection of live panels.
// Insertion order is the stacking default. All mutations go through
// registry operations; collaborators never modify panels directly.
type Registry struct {
	mu               sync.Mutex
	panels           []*Panel
	nextID           int64
	comparisonActive bool
	onRemoving       func(ids []int64)
	metrics          *metrics.PanelMetrics
}

// NewRegistry creates an empty panel registry. The metrics pointer may be
// nil.
func NewRegistry(m *metrics.PanelMetrics) *Registry {
	return &Registry{metrics: m}
}

// SetRemovalNotifier installs the rendering collaborator's removal hook.
// The notifier receives the IDs of panels entering removal and is expected
// to call FinalizeRemoval for each after its own exit transition. The
// registry never blocks on that transition.
func (r *Registry) SetRemovalNotifier(fn func(ids []int64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoving = fn
}

// Add registers a new panel for the record at the given position and
// returns it. The new panel is frontmost.
func (r *Registry) Add(record *nutrition.Record, pos Position) *Panel {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	home := pos.Clone()
	p := &Panel{
		ID:        r.nextID,
		Record:    record,
		Position:  pos.Clone(),
		Home:      &home,
		ZOrder:    len(r.panels),
		Scale:     1.0,
		CreatedAt: time.Now(),
	}
	r.panels = append(r.panels, p)

	if r.metrics != nil {
		mode := string(ModeScreen)
		if pos.Pose != nil {
			mode = string(ModeAR)
		}
		r.metrics.RecordPlacement(mode)
		r.metrics.UpdateActivePanels(len(r.panels))
	}

	return p
}

// Get returns the panel with the given ID.
func (r *Registry) Get(id int64) (*Panel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findLocked(id)
}

// Len returns the number of live panels, including those mid-removal.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.panels)
}

// Snapshot returns value copies of all panels in insertion order, for
// read-only consumers.
func (r *Registry) Snapshot() []Panel {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Panel, 0, len(r.panels))
	for _, p := range r.panels {
		c := *p
		c.Position = p.Position.Clone()
		if p.Home != nil {
			home := p.Home.Clone()
			c.Home = &home
		}
		out = append(out, c)
	}
	return out
}

// ForEach runs fn against every live panel under the registry lock.
// Callers own the single-writer discipline: fn may mutate panels but must
// not call back into the registry.
func (r *Registry) ForEach(fn func(*Panel)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.panels {
		fn(p)
	}
}

// ForEachInteractive runs fn against every live panel, or not at all
// while comparison mode owns panel positions. The comparison check and
// fn share a single lock acquisition, so a concurrent comparison enter
// cannot interleave with the mutations. Reports whether fn ran.
func (r *Registry) ForEachInteractive(fn func(*Panel)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.comparisonActive {
		return false
	}
	for _, p := range r.panels {
		fn(p)
	}
	return true
}

// BringToFront raises the panel above all others, reassigning every
// z-order deterministically from current stacking order. Rejected while
// comparison mode owns the layout.
func (r *Registry) BringToFront(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.comparisonActive {
		return errors.Newf("panel stacking is suppressed during comparison mode").
			Category(errors.CategoryState).
			Component("panel").
			Build()
	}

	target, ok := r.findLocked(id)
	if !ok {
		return r.notFoundErr(id, "bring_to_front")
	}

	ordered := make([]*Panel, len(r.panels))
	copy(ordered, r.panels)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ZOrder < ordered[j].ZOrder })

	z := 0
	for _, p := range ordered {
		if p == target {
			continue
		}
		p.ZOrder = z
		z++
	}
	target.ZOrder = z

	if r.metrics != nil {
		r.metrics.RecordBringToFront()
	}
	return nil
}

// Reposition moves a panel. Drag and orientation moves are rejected while
// comparison mode is active.
func (r *Registry) Reposition(id int64, pos Position, source string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.comparisonActive && source != SourceCompare {
		return errors.Newf("panel repositioning is suppressed during comparison mode").
			Category(errors.CategoryState).
			Context("source", source).
			Component("panel").
			Build()
	}

	p, ok := r.findLocked(id)
	if !ok {
		return r.notFoundErr(id, "reposition")
	}

	p.Position = pos.Clone()

	// Orientation moves persist as the panel's home so comparison mode
	// restores to where the panel drifted, not where it first appeared.
	if source == SourceOrientation || source == SourceDrag {
		home := pos.Clone()
		p.Home = &home
	}

	if r.metrics != nil {
		r.metrics.RecordReposition(source)
	}
	return nil
}

// Remove marks one panel as removing and notifies the rendering
// collaborator. Finalization happens via FinalizeRemoval.
func (r *Registry) Remove(id int64, reason string) error {
	r.mu.Lock()
	p, ok := r.findLocked(id)
	if !ok {
		r.mu.Unlock()
		return r.notFoundErr(id, "remove")
	}
	p.Removing = true
	notifier := r.onRemoving
	if r.metrics != nil {
		r.metrics.RecordRemoval(reason)
	}
	r.mu.Unlock()

	if notifier != nil {
		notifier([]int64{id})
	} else {
		r.FinalizeRemoval(id)
	}
	return nil
}

// RemoveAll marks every panel as removing and notifies the rendering
// collaborator once with the full ID list. Returns the affected IDs.
func (r *Registry) RemoveAll() []int64 {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.panels))
	for _, p := range r.panels {
		p.Removing = true
		ids = append(ids, p.ID)
	}
	notifier := r.onRemoving
	if r.metrics != nil {
		for range ids {
			r.metrics.RecordRemoval(RemovalClearAll)
		}
	}
	r.mu.Unlock()

	if len(ids) == 0 {
		return ids
	}
	if notifier != nil {
		notifier(ids)
	} else {
		for _, id := range ids {
			r.FinalizeRemoval(id)
		}
	}
	return ids
}

// FinalizeRemoval drops a panel after the rendering collaborator finished
// its exit transition. Unknown IDs are ignored; finalization is best
// effort.
func (r *Registry) FinalizeRemoval(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.panels {
		if p.ID == id {
			r.panels = append(r.panels[:i], r.panels[i+1:]...)
			break
		}
	}
	if r.metrics != nil {
		r.metrics.UpdateActivePanels(len(r.panels))
	}
}

// SetComparisonActive toggles the comparison-mode suppression flag.
func (r *Registry) SetComparisonActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comparisonActive = active
}

// ComparisonActive reports whether comparison mode currently owns panel
// positions.
func (r *Registry) ComparisonActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.comparisonActive
}

func (r *Registry) findLocked(id int64) (*Panel, bool) {
	for _, p := range r.panels {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

func (r *Registry) notFoundErr(id int64, op string) error {
	return errors.Newf("panel %d not found", id).
		Category(errors.CategoryNotFound).
		Context("panel_id", id).
		Context("operation", op).
		Component("panel").
		Build()
}
