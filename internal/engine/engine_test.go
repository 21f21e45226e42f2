package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/slidevault/internal/backup"
	"github.com/dshills/slidevault/internal/engine/checkpoint"
	"github.com/dshills/slidevault/internal/engine/diff"
	"github.com/dshills/slidevault/internal/engine/notify"
	"github.com/dshills/slidevault/internal/persist"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// failingPersister rejects every save.
type failingPersister struct {
	loadErr error
	saves   int
}

func (p *failingPersister) Load() (*checkpoint.State, error) { return nil, p.loadErr }

func (p *failingPersister) Save(checkpoint.State) error {
	p.saves++
	return errors.New("disk full")
}

func newTestEngine(t *testing.T, p Persister, opts ...Option) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	e, err := New(p, append([]Option{WithClock(clock.Now)}, opts...)...)
	require.NoError(t, err)
	return e, clock
}

// ============================================================================
// Construction
// ============================================================================

func TestNewInvalidLimits(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want error
	}{
		{"max versions", WithMaxVersions(0), ErrInvalidLimit},
		{"max checkpoints", WithMaxCheckpoints(-1), ErrInvalidLimit},
		{"max auto-saves", WithMaxAutoSaves(0), ErrInvalidLimit},
		{"interval", WithAutoSaveInterval(-time.Second), ErrInvalidInterval},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := New(nil, tt.opt)
			assert.Nil(t, e)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewLoadsPersistedState(t *testing.T) {
	mem := persist.NewMemory()
	last := time.Date(2024, 6, 1, 11, 59, 50, 0, time.UTC)
	require.NoError(t, mem.Save(checkpoint.State{
		LastAutoSave: last,
		Checkpoints: []checkpoint.Checkpoint{
			{ID: "a", Name: "Saved", Timestamp: last.Add(-time.Hour), Snapshot: checkpoint.Snapshot{"s1": "x"}},
		},
	}))

	e, clock := newTestEngine(t, mem)

	cps := e.Checkpoints()
	require.Len(t, cps, 1)
	assert.Equal(t, "Saved", cps[0].Name)
	assert.True(t, e.LastAutoSave().Equal(last))

	assert.False(t, e.ShouldAutoSave(), "10s since last auto-save")
	clock.Advance(20 * time.Second)
	assert.True(t, e.ShouldAutoSave())
}

func TestNewLoadFailureStartsEmpty(t *testing.T) {
	e, _ := newTestEngine(t, &failingPersister{loadErr: errors.New("corrupt")})
	assert.Empty(t, e.Checkpoints())
	assert.True(t, e.LastAutoSave().IsZero())
}

// ============================================================================
// Editor surface
// ============================================================================

func TestUndoRedoScenario(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	e.RecordChange("s1", "A", "")
	e.RecordChange("s1", "B", "")
	e.RecordChange("s1", "C", "")

	v, ok := e.Undo("s1")
	require.True(t, ok)
	assert.Equal(t, "B", v.Content)

	v, ok = e.Undo("s1")
	require.True(t, ok)
	assert.Equal(t, "A", v.Content)
	assert.False(t, e.CanUndo("s1"))

	_, ok = e.Undo("s1")
	assert.False(t, ok)

	v, ok = e.Redo("s1")
	require.True(t, ok)
	assert.Equal(t, "B", v.Content)

	e.RecordChange("s1", "D", "")
	assert.False(t, e.CanRedo("s1"))

	hist, ok := e.History("s1")
	require.True(t, ok)
	var contents []string
	for _, v := range hist {
		contents = append(contents, v.Content)
	}
	assert.Equal(t, []string{"A", "B", "D"}, contents)
}

func TestRecordChangeBounded(t *testing.T) {
	e, _ := newTestEngine(t, nil, WithMaxVersions(3))

	for i := 1; i <= 5; i++ {
		e.RecordChange("s1", fmt.Sprintf("v%d", i), "")
	}

	hist, _ := e.History("s1")
	require.Len(t, hist, 3)
	assert.Equal(t, "v3", hist[0].Content)

	cur, ok := e.Current("s1")
	require.True(t, ok)
	assert.Equal(t, "v5", cur.Content)
}

func TestRecordChangeDuplicateIsSilent(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	var events []notify.Event
	e.Subscribe(func(ev notify.Event) { events = append(events, ev) })

	first := e.RecordChange("s1", "same", "one")
	second := e.RecordChange("s1", "same", "two")

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, events, 1)
}

func TestClearUnitAndReset(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.RecordChange("s1", "a", "")
	e.RecordChange("s2", "b", "")

	e.ClearUnit("s1")
	_, ok := e.Current("s1")
	assert.False(t, ok)
	assert.Equal(t, []string{"s2"}, e.Units())

	e.Reset()
	assert.Empty(t, e.Units())
}

func TestSnapshotUsesActiveVersions(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.RecordChange("s1", "one", "")
	e.RecordChange("s1", "two", "")
	e.RecordChange("s2", "other", "")
	e.Undo("s1")

	assert.Equal(t, Snapshot{"s1": "one", "s2": "other"}, e.Snapshot())
}

// ============================================================================
// Checkpoints
// ============================================================================

func TestCreateCheckpointPersists(t *testing.T) {
	mem := persist.NewMemory()
	e, _ := newTestEngine(t, mem)

	snap := Snapshot{"s1": "<p>x</p>"}
	cp, err := e.CreateCheckpoint("Milestone", snap, "Deck")
	require.NoError(t, err)
	assert.False(t, cp.IsAutoSave)
	assert.Equal(t, 1, mem.Saves())

	snap["s1"] = "mutated"
	got, ok := e.RestoreCheckpoint(cp.ID)
	require.True(t, ok)
	assert.Equal(t, "<p>x</p>", got.Snapshot["s1"])

	state, err := mem.Load()
	require.NoError(t, err)
	require.Len(t, state.Checkpoints, 1)
	assert.Equal(t, cp.ID, state.Checkpoints[0].ID)
}

func TestCreateCheckpointSaveError(t *testing.T) {
	p := &failingPersister{}
	e, _ := newTestEngine(t, p)

	cp, err := e.CreateCheckpoint("Milestone", Snapshot{}, "Deck")
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.NotEmpty(t, cp.ID)

	total, _ := e.CheckpointCounts()
	assert.Equal(t, 1, total, "checkpoint kept in memory")
}

func TestAutoSaveGate(t *testing.T) {
	mem := persist.NewMemory()
	e, clock := newTestEngine(t, mem, WithAutoSaveInterval(30*time.Second))

	cp, ok := e.AutoSave(Snapshot{"s1": "a"}, "Deck")
	require.True(t, ok, "first auto-save always runs")
	assert.True(t, cp.IsAutoSave)
	assert.True(t, e.LastAutoSave().Equal(clock.Now()))

	clock.Advance(10 * time.Second)
	_, ok = e.AutoSave(Snapshot{"s1": "b"}, "Deck")
	assert.False(t, ok)

	clock.Advance(20 * time.Second)
	_, ok = e.AutoSave(Snapshot{"s1": "c"}, "Deck")
	assert.True(t, ok)

	assert.Equal(t, 2, mem.Saves())
	state, err := mem.Load()
	require.NoError(t, err)
	assert.True(t, state.LastAutoSave.Equal(clock.Now()))
}

func TestAutoSaveSaveErrorIsSwallowed(t *testing.T) {
	p := &failingPersister{}
	e, _ := newTestEngine(t, p)

	_, ok := e.AutoSave(Snapshot{"s1": "a"}, "Deck")
	assert.True(t, ok)
	assert.Equal(t, 1, p.saves)
}

func TestAutoSavePruning(t *testing.T) {
	e, clock := newTestEngine(t, nil,
		WithMaxAutoSaves(2),
		WithMaxCheckpoints(3),
		WithAutoSaveInterval(time.Second))

	manual, err := e.CreateCheckpoint("Keep me", Snapshot{"s1": "m"}, "Deck")
	require.NoError(t, err)

	var deleted []string
	e.Subscribe(func(ev notify.Event) {
		if ev.Type == notify.EventCheckpointDeleted {
			deleted = append(deleted, ev.CheckpointID)
		}
	})

	var autos []Checkpoint
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		cp, ok := e.AutoSave(Snapshot{"s1": fmt.Sprint(i)}, "Deck")
		require.True(t, ok)
		autos = append(autos, cp)
	}

	total, auto := e.CheckpointCounts()
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, auto)
	assert.Equal(t, []string{autos[0].ID, autos[1].ID}, deleted)

	_, ok := e.RestoreCheckpoint(manual.ID)
	assert.True(t, ok, "manual checkpoint survives pruning")

	list := e.Checkpoints()
	assert.Equal(t, autos[3].ID, list[0].ID, "newest first")
}

func TestRestoreIsNonDestructive(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	cp, err := e.CreateCheckpoint("A", Snapshot{"s1": "x"}, "Deck")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		got, ok := e.RestoreCheckpoint(cp.ID)
		require.True(t, ok)
		assert.Equal(t, "x", got.Snapshot["s1"])
	}

	_, ok := e.RestoreCheckpoint("missing")
	assert.False(t, ok)
}

func TestDeleteCheckpoint(t *testing.T) {
	mem := persist.NewMemory()
	e, _ := newTestEngine(t, mem)
	cp, err := e.CreateCheckpoint("A", Snapshot{}, "Deck")
	require.NoError(t, err)

	ok, err := e.DeleteCheckpoint(cp.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, e.Checkpoints())
	assert.Equal(t, 2, mem.Saves())

	ok, err = e.DeleteCheckpoint(cp.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, mem.Saves(), "no save for a missing checkpoint")
}

func TestCheckpointsSurviveRestart(t *testing.T) {
	mem := persist.NewMemory()
	e, _ := newTestEngine(t, mem)
	cp, err := e.CreateCheckpoint("A", Snapshot{"s1": "x"}, "Deck")
	require.NoError(t, err)
	_, ok := e.AutoSave(Snapshot{"s1": "y"}, "Deck")
	require.True(t, ok)

	again, _ := newTestEngine(t, mem)
	got, ok := again.RestoreCheckpoint(cp.ID)
	require.True(t, ok)
	assert.Equal(t, "x", got.Snapshot["s1"])
	total, auto := again.CheckpointCounts()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, auto)
	assert.False(t, again.LastAutoSave().IsZero())
}

// ============================================================================
// Diff viewer
// ============================================================================

func TestDiffVersions(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.RecordChange("s1", "<p>a</p><p>b</p>", "")
	e.RecordChange("s1", "<p>a</p><p>c</p>", "")

	lines, err := e.DiffVersions("s1", 0, 1)
	require.NoError(t, err)

	sum := diff.Summarize(lines)
	assert.Equal(t, 1, sum.Added)
	assert.Equal(t, 1, sum.Removed)
	assert.Equal(t, 5, sum.Same)

	_, err = e.DiffVersions("s1", 0, 7)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	_, err = e.DiffVersions("nope", 0, 0)
	assert.ErrorIs(t, err, ErrUnitNotFound)
}

func TestDiffAgainstCurrent(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.RecordChange("s1", "line one\nline two", "")

	lines, err := e.DiffAgainstCurrent("s1", 0, "line one\nline two\nline three")
	require.NoError(t, err)
	assert.Equal(t, []DiffLine{
		{Kind: diff.Same, Text: "line one"},
		{Kind: diff.Same, Text: "line two"},
		{Kind: diff.Added, Text: "line three"},
	}, lines)
}

func TestDiffUsesConfiguredStrategy(t *testing.T) {
	e, _ := newTestEngine(t, nil, WithDiffOptions(diff.WithStrategy(diff.StrategyLCS)))
	lines := e.Diff("a\nb\nc", "a\nc")
	assert.Equal(t, diff.Summary{Same: 2, Removed: 1}, diff.Summarize(lines))
}

// ============================================================================
// Backup
// ============================================================================

func TestExportImport(t *testing.T) {
	mem := persist.NewMemory()
	e, _ := newTestEngine(t, mem)

	data, err := e.Export("Quarterly", []Slide{
		{ID: "s1", Title: "Intro", HTML: "<h1>Hi</h1>"},
		{ID: "s2", Title: "End", HTML: "<p>Bye</p>"},
	}, nil)
	require.NoError(t, err)

	var imported []notify.Event
	e.Subscribe(func(ev notify.Event) {
		if ev.Type == notify.EventImported {
			imported = append(imported, ev)
		}
	})

	doc, cp, err := e.Import(data)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly", doc.Title)
	assert.Equal(t, "Imported: Quarterly", cp.Name)
	assert.False(t, cp.IsAutoSave)
	assert.Equal(t, Snapshot{"s1": "<h1>Hi</h1>", "s2": "<p>Bye</p>"}, cp.Snapshot)
	require.Len(t, imported, 1)
	assert.Equal(t, cp.ID, imported[0].CheckpointID)
	assert.Equal(t, 1, mem.Saves())
}

func TestImportInvalidIsAtomic(t *testing.T) {
	mem := persist.NewMemory()
	e, _ := newTestEngine(t, mem)
	_, err := e.CreateCheckpoint("Existing", Snapshot{"s1": "x"}, "Deck")
	require.NoError(t, err)
	before := e.Checkpoints()

	for _, input := range []string{
		`{"slides": []}`,
		`{"version": "1.0"}`,
		`{"version": "1.0", "slides": "nope"}`,
		`not json`,
	} {
		_, _, err := e.Import([]byte(input))
		assert.ErrorIs(t, err, backup.ErrInvalidBackup, input)
	}

	assert.Equal(t, before, e.Checkpoints())
	assert.Equal(t, 1, mem.Saves())
}

// ============================================================================
// Notifications and concurrency
// ============================================================================

func TestEvents(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	var types []notify.EventType
	e.Subscribe(func(ev notify.Event) { types = append(types, ev.Type) })

	e.RecordChange("s1", "a", "")
	e.RecordChange("s1", "b", "")
	e.Undo("s1")
	e.Redo("s1")
	e.Redo("s1")
	e.ClearUnit("s1")
	e.ClearUnit("s1")
	e.Reset()

	assert.Equal(t, []notify.EventType{
		notify.EventRecorded,
		notify.EventRecorded,
		notify.EventUndo,
		notify.EventRedo,
		notify.EventCleared,
		notify.EventReset,
	}, types)
}

func TestObserverMayCallEngine(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	var seen string
	e.SubscribeUnit("s1", func(ev notify.Event) {
		if v, ok := e.Current(ev.UnitID); ok {
			seen = v.Content
		}
	})

	e.RecordChange("s1", "hello", "")
	assert.Equal(t, "hello", seen)
}

func TestConcurrentAccess(t *testing.T) {
	e, _ := newTestEngine(t, persist.NewMemory(), WithAutoSaveInterval(0))

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			unit := fmt.Sprintf("s%d", g)
			for i := 0; i < 50; i++ {
				e.RecordChange(unit, fmt.Sprint(i), "")
				if i%10 == 0 {
					e.AutoSave(e.Snapshot(), "Deck")
				}
				e.Undo(unit)
				e.Redo(unit)
			}
		}(g)
	}
	wg.Wait()

	for g := 0; g < 4; g++ {
		cur, ok := e.Current(fmt.Sprintf("s%d", g))
		require.True(t, ok)
		assert.Equal(t, "49", cur.Content)
	}
	_, auto := e.CheckpointCounts()
	assert.LessOrEqual(t, auto, DefaultMaxAutoSaves)
}
