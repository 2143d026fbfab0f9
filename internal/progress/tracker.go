package progress

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotInitialized reports a task registration before the display surface
// was attached. This is a programming-contract violation, not a runtime
// condition, and callers treat it as fatal.
var ErrNotInitialized = errors.New("progress: surface not initialized")

// DefaultMaxVisible caps simultaneously rendered task rows.
const DefaultMaxVisible = 5

const pulseAdvance = 0.5

// TaskID identifies one registered progress task. The zero value is a valid
// "no task" handle: every Tracker method silently ignores it.
type TaskID string

// Row is the render snapshot of one visible task.
type Row struct {
	ID          TaskID
	Description string
	Percent     float64
}

// Surface receives visible-row snapshots whenever tracker state changes.
type Surface interface {
	Update(rows []Row)
}

// Update carries incremental retrieval progress. The percentage is taken
// from PercentStr when present, computed from Downloaded/Total or
// Downloaded/TotalEstimate otherwise. With no usable size information the
// bar is pulsed forward a fixed small amount so it never looks stalled.
type Update struct {
	PercentStr    string
	Downloaded    int64
	Total         int64
	TotalEstimate int64
	Speed         string
}

type task struct {
	id          TaskID
	description string
	percent     float64
	visible     bool
	done        bool
}

// Tracker multiplexes an unbounded number of logical tasks onto at most
// maxVisible display rows: a task registered while the visible set is full
// starts hidden and is promoted when a visible task completes. This is a
// display concern only; it never gates job execution. A nil *Tracker is
// valid and drops all updates.
type Tracker struct {
	mu         sync.Mutex
	surface    Surface
	maxVisible int
	tasks      map[TaskID]*task
	order      []TaskID
}

func NewTracker(surface Surface, maxVisible int) *Tracker {
	if maxVisible <= 0 {
		maxVisible = DefaultMaxVisible
	}
	return &Tracker{
		surface:    surface,
		maxVisible: maxVisible,
		tasks:      make(map[TaskID]*task),
	}
}

// Register creates a new task row, visible immediately only if the visible
// set has room.
func (t *Tracker) Register(description string) (TaskID, error) {
	if t == nil {
		return "", nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.surface == nil {
		return "", ErrNotInitialized
	}

	id := newTaskID()
	t.tasks[id] = &task{
		id:          id,
		description: description,
		visible:     t.visibleCountLocked() < t.maxVisible,
	}
	t.order = append(t.order, id)
	t.pushLocked()
	return id, nil
}

// Complete removes the task from the visible set and promotes one hidden
// task, if any. Unknown or already-completed handles are a no-op.
func (t *Tracker) Complete(id TaskID) {
	if t == nil || id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	tk, ok := t.tasks[id]
	if !ok || tk.done {
		return
	}
	tk.done = true
	tk.percent = 100
	wasVisible := tk.visible
	tk.visible = false

	if wasVisible {
		for _, other := range t.order {
			candidate := t.tasks[other]
			if !candidate.done && !candidate.visible {
				candidate.visible = true
				break
			}
		}
	}
	t.pushLocked()
}

// SetPercent clamps and records completion for the task.
func (t *Tracker) SetPercent(id TaskID, percent float64) {
	if t == nil || id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.tasks[id]
	if !ok || tk.done {
		return
	}
	tk.percent = clampPercent(percent)
	t.pushLocked()
}

// Describe replaces the task's row text.
func (t *Tracker) Describe(id TaskID, description string) {
	if t == nil || id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.tasks[id]
	if !ok || tk.done {
		return
	}
	tk.description = description
	t.pushLocked()
}

// Apply translates an incremental retrieval update into a bar position.
func (t *Tracker) Apply(id TaskID, u Update) {
	if t == nil || id == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	tk, ok := t.tasks[id]
	if !ok || tk.done {
		return
	}
	if pct, ok := percentOf(u); ok {
		tk.percent = clampPercent(pct)
	} else {
		tk.percent = clampPercent(tk.percent + pulseAdvance)
	}
	if u.Speed != "" {
		tk.description = appendSpeed(tk.description, u.Speed)
	}
	t.pushLocked()
}

// VisibleCount reports how many tasks are currently rendered.
func (t *Tracker) VisibleCount() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.visibleCountLocked()
}

// ActiveCount reports registered, not-yet-completed tasks.
func (t *Tracker) ActiveCount() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, tk := range t.tasks {
		if !tk.done {
			n++
		}
	}
	return n
}

func (t *Tracker) visibleCountLocked() int {
	n := 0
	for _, tk := range t.tasks {
		if tk.visible {
			n++
		}
	}
	return n
}

func (t *Tracker) pushLocked() {
	rows := make([]Row, 0, t.maxVisible)
	for _, id := range t.order {
		tk := t.tasks[id]
		if tk.visible {
			rows = append(rows, Row{ID: tk.id, Description: tk.description, Percent: tk.percent})
		}
	}
	t.surface.Update(rows)
}

func percentOf(u Update) (float64, bool) {
	if s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(u.PercentStr), "%")); s != "" {
		if pct, err := strconv.ParseFloat(s, 64); err == nil {
			return pct, true
		}
	}
	if u.Downloaded > 0 && u.Total > 0 {
		return float64(u.Downloaded) / float64(u.Total) * 100, true
	}
	if u.Downloaded > 0 && u.TotalEstimate > 0 {
		return float64(u.Downloaded) / float64(u.TotalEstimate) * 100, true
	}
	return 0, false
}

func clampPercent(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func appendSpeed(description, speed string) string {
	if idx := strings.LastIndex(description, " ("); idx >= 0 && strings.HasSuffix(description, ")") {
		description = description[:idx]
	}
	return fmt.Sprintf("%s (%s)", description, speed)
}

func newTaskID() TaskID {
	// V7 is time-ordered, which keeps promotion order deterministic when
	// handles are compared in tests.
	id, err := uuid.NewV7()
	if err != nil {
		return TaskID(uuid.NewString())
	}
	return TaskID(id.String())
}
