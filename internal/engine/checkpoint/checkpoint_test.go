package checkpoint

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

var testBase = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

// Helper to create a manager whose clock advances one minute per call
func newTestManager(t *testing.T, maxCheckpoints, maxAutoSaves int) *Manager {
	t.Helper()
	tick := 0
	m, err := NewManager(maxCheckpoints, maxAutoSaves, WithClock(func() time.Time {
		tick++
		return testBase.Add(time.Duration(tick) * time.Minute)
	}))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func snap(content string) Snapshot {
	return Snapshot{"s1": content}
}

func TestNewManagerInvalidLimits(t *testing.T) {
	tests := []struct {
		total, auto int
	}{
		{0, 10},
		{50, 0},
		{-1, -1},
	}
	for _, tt := range tests {
		if _, err := NewManager(tt.total, tt.auto); !errors.Is(err, ErrInvalidLimit) {
			t.Errorf("NewManager(%d, %d) error = %v, want ErrInvalidLimit", tt.total, tt.auto, err)
		}
	}
}

func TestCreateAndRestore(t *testing.T) {
	m := newTestManager(t, 50, 10)

	cp, pruned := m.Create("Before rewrite", snap("<p>A</p>"), false, "Deck")
	if len(pruned) != 0 {
		t.Errorf("pruned = %v, want none", pruned)
	}
	if cp.ID == "" || cp.Name != "Before rewrite" || cp.IsAutoSave || cp.DocumentTitle != "Deck" {
		t.Errorf("unexpected checkpoint %+v", cp)
	}

	got, ok := m.Restore(cp.ID)
	if !ok {
		t.Fatal("Restore did not find checkpoint")
	}
	if got.Snapshot["s1"] != "<p>A</p>" {
		t.Errorf("snapshot = %v", got.Snapshot)
	}

	// Restoring is non-destructive
	if _, ok := m.Restore(cp.ID); !ok {
		t.Error("checkpoint should remain after restore")
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	if _, ok := m.Restore("missing"); ok {
		t.Error("Restore of unknown ID should report false")
	}
}

func TestSnapshotIsolation(t *testing.T) {
	m := newTestManager(t, 50, 10)
	live := Snapshot{"s1": "original"}

	cp, _ := m.Create("cp", live, false, "")
	live["s1"] = "edited"
	live["s2"] = "new slide"

	got, _ := m.Restore(cp.ID)
	if got.Snapshot["s1"] != "original" || len(got.Snapshot) != 1 {
		t.Errorf("stored snapshot changed with live buffer: %v", got.Snapshot)
	}

	// Mutating a restored copy does not leak back either
	got.Snapshot["s1"] = "tampered"
	again, _ := m.Restore(cp.ID)
	if again.Snapshot["s1"] != "original" {
		t.Errorf("stored snapshot changed through restored copy: %v", again.Snapshot)
	}
}

func TestAutoSavePruning(t *testing.T) {
	m := newTestManager(t, 50, 10)

	var created []Checkpoint
	for i := 0; i < 12; i++ {
		cp, _ := m.Create(fmt.Sprintf("auto %d", i), snap(fmt.Sprint(i)), true, "")
		created = append(created, cp)
	}

	total, auto := m.Counts()
	if total != 10 || auto != 10 {
		t.Fatalf("counts = %d/%d, want 10/10", total, auto)
	}
	for _, cp := range created[:2] {
		if _, ok := m.Restore(cp.ID); ok {
			t.Errorf("%s should have been evicted", cp.Name)
		}
	}
	for _, cp := range created[2:] {
		if _, ok := m.Restore(cp.ID); !ok {
			t.Errorf("%s should survive", cp.Name)
		}
	}
}

func TestAutoSavePruningReportsEvictions(t *testing.T) {
	m := newTestManager(t, 50, 2)
	first, _ := m.Create("a1", nil, true, "")
	m.Create("a2", nil, true, "")

	_, pruned := m.Create("a3", nil, true, "")
	if len(pruned) != 1 || pruned[0] != first.ID {
		t.Errorf("pruned = %v, want [%s]", pruned, first.ID)
	}
}

func TestManualCheckpointsSurviveAutoSaveVolume(t *testing.T) {
	m := newTestManager(t, 50, 10)

	var manual []Checkpoint
	for i := 0; i < 30; i++ {
		m.Create("auto", snap(fmt.Sprint(i)), true, "")
		if i%5 == 0 {
			cp, _ := m.Create(fmt.Sprintf("manual %d", i), snap("m"), false, "")
			manual = append(manual, cp)
		}
	}

	for _, cp := range manual {
		if _, ok := m.Restore(cp.ID); !ok {
			t.Errorf("manual checkpoint %q was evicted", cp.Name)
		}
	}
	_, auto := m.Counts()
	if auto != 10 {
		t.Errorf("auto-saves = %d, want 10", auto)
	}
}

func TestTotalCapEvictsOnlyAutoSaves(t *testing.T) {
	m := newTestManager(t, 5, 10)

	a1, _ := m.Create("a1", nil, true, "")
	a2, _ := m.Create("a2", nil, true, "")
	for i := 0; i < 3; i++ {
		m.Create(fmt.Sprintf("m%d", i), nil, false, "")
	}
	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}

	_, pruned := m.Create("m3", nil, false, "")
	if len(pruned) != 1 || pruned[0] != a1.ID {
		t.Errorf("pruned = %v, want oldest auto-save", pruned)
	}

	m.Create("m4", nil, false, "")
	if _, ok := m.Restore(a2.ID); ok {
		t.Error("a2 should be evicted by total cap")
	}

	// Only manual checkpoints remain; the cap is exceeded rather than
	// evicting one of them.
	m.Create("m5", nil, false, "")
	total, auto := m.Counts()
	if auto != 0 || total != 6 {
		t.Errorf("counts = %d/%d, want 6/0", total, auto)
	}
	for _, cp := range m.List() {
		if cp.IsAutoSave {
			t.Errorf("unexpected auto-save %q", cp.Name)
		}
	}
}

func TestListNewestFirst(t *testing.T) {
	m := newTestManager(t, 50, 10)
	for _, name := range []string{"one", "two", "three"} {
		m.Create(name, nil, false, "")
	}

	list := m.List()
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].Name != "three" || list[2].Name != "one" {
		t.Errorf("order = %s, %s, %s", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestListTiesKeepInsertionOrder(t *testing.T) {
	m, err := NewManager(50, 10, WithClock(func() time.Time { return testBase }))
	if err != nil {
		t.Fatal(err)
	}
	m.Create("first", nil, false, "")
	m.Create("second", nil, false, "")

	list := m.List()
	if list[0].Name != "second" {
		t.Errorf("newest insert should come first, got %q", list[0].Name)
	}
}

func TestDelete(t *testing.T) {
	m := newTestManager(t, 50, 10)
	cp, _ := m.Create("manual", nil, false, "")

	if !m.Delete(cp.ID) {
		t.Error("Delete should report true")
	}
	if m.Delete(cp.ID) {
		t.Error("second Delete should report false")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d", m.Len())
	}
}

func TestShouldAutoSave(t *testing.T) {
	tests := []struct {
		name     string
		last     time.Time
		now      time.Time
		interval time.Duration
		want     bool
	}{
		{"never saved", time.Time{}, testBase, time.Minute, true},
		{"too soon", testBase, testBase.Add(59 * time.Second), time.Minute, false},
		{"exactly interval", testBase, testBase.Add(time.Minute), time.Minute, true},
		{"past interval", testBase, testBase.Add(2 * time.Minute), time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldAutoSave(tt.last, tt.now, tt.interval); got != tt.want {
				t.Errorf("ShouldAutoSave() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateRoundTrip(t *testing.T) {
	m := newTestManager(t, 50, 10)
	m.Create("manual", snap("m"), false, "Deck")
	m.Create("auto", snap("a"), true, "Deck")

	last := testBase.Add(time.Hour)
	state := m.State(last)
	if len(state.Checkpoints) != 2 || !state.LastAutoSave.Equal(last) {
		t.Fatalf("state = %+v", state)
	}

	other := newTestManager(t, 50, 10)
	if pruned := other.Load(state); len(pruned) != 0 {
		t.Errorf("pruned on load = %v", pruned)
	}

	// Mutating the exported state does not affect either manager
	state.Checkpoints[0].Snapshot["s1"] = "changed"
	for _, mgr := range []*Manager{m, other} {
		list := mgr.List()
		if list[1].Snapshot["s1"] != "m" {
			t.Errorf("state shares snapshot memory with manager")
		}
	}
}

func TestLoadAppliesPruning(t *testing.T) {
	var state State
	for i := 0; i < 6; i++ {
		state.Checkpoints = append(state.Checkpoints, Checkpoint{
			ID:         fmt.Sprintf("auto-%d", i),
			Timestamp:  testBase.Add(time.Duration(i) * time.Minute),
			IsAutoSave: true,
		})
	}
	state.Checkpoints = append(state.Checkpoints, Checkpoint{ID: "manual", Timestamp: testBase})

	m := newTestManager(t, 50, 3)
	pruned := m.Load(state)
	if len(pruned) != 3 {
		t.Fatalf("pruned = %v, want 3 entries", pruned)
	}
	for i, id := range []string{"auto-0", "auto-1", "auto-2"} {
		if pruned[i] != id {
			t.Errorf("pruned[%d] = %s, want %s", i, pruned[i], id)
		}
	}
	if _, ok := m.Restore("manual"); !ok {
		t.Error("manual checkpoint dropped on load")
	}
}

func TestSnapshotHelpers(t *testing.T) {
	s := Snapshot{"b": "12", "a": "345"}
	if ids := s.UnitIDs(); len(ids) != 2 || ids[0] != "a" {
		t.Errorf("UnitIDs() = %v", ids)
	}
	if s.Size() != 5 {
		t.Errorf("Size() = %d", s.Size())
	}

	var nilSnap Snapshot
	if c := nilSnap.Clone(); c == nil || len(c) != 0 {
		t.Errorf("nil Clone() = %v", c)
	}
}
