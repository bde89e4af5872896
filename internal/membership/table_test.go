package membership

import (
	"testing"
	"time"

	"github.com/mcastellin/gossip-detector/internal/fsm"
)

func TestUpsertIsIdempotent(t *testing.T) {
	tbl := NewTable(5*time.Second, 5)
	now := time.Now()

	tbl.Upsert("peer-a", now)
	entry, ok := tbl.Get("peer-a")
	if !ok {
		t.Fatal("expected peer-a to be present")
	}
	if entry.State != fsm.Suspect || entry.Heartbeat != 0 {
		t.Fatalf("unexpected initial entry: %+v", entry)
	}

	tbl.Upsert("peer-a", now.Add(time.Second))
	entry2, _ := tbl.Get("peer-a")
	if entry2.AdvancedAt != entry.AdvancedAt {
		t.Fatal("second upsert should be a no-op")
	}
}

func TestMergeCounterMonotonic(t *testing.T) {
	tbl := NewTable(5*time.Second, 5)
	now := time.Now()

	seq := []uint64{10, 7, 11, 11, 9}
	expected := []uint64{10, 10, 11, 11, 11}

	var lastAdvanced time.Time
	for i, observed := range seq {
		ts := now.Add(time.Duration(i) * time.Second)
		advanced := tbl.MergeCounter("peer-a", observed, ts)
		entry, _ := tbl.Get("peer-a")
		if entry.Heartbeat != expected[i] {
			t.Fatalf("step %d: expected heartbeat %d, got %d", i, expected[i], entry.Heartbeat)
		}
		if i == 0 || i == 2 {
			if !advanced {
				t.Fatalf("step %d: expected an advance", i)
			}
			lastAdvanced = ts
		}
		if entry.AdvancedAt != lastAdvanced {
			t.Fatalf("step %d: AdvancedAt drifted unexpectedly", i)
		}
	}
}

func TestMergeCounterNeverDecreases(t *testing.T) {
	tbl := NewTable(5*time.Second, 5)
	now := time.Now()
	tbl.MergeCounter("peer-a", 100, now)
	advanced := tbl.MergeCounter("peer-a", 5, now.Add(time.Second))
	if advanced {
		t.Fatal("expected stale counter to be rejected")
	}
	entry, _ := tbl.Get("peer-a")
	if entry.Heartbeat != 100 {
		t.Fatalf("expected heartbeat to remain 100, got %d", entry.Heartbeat)
	}
}

func TestSnapshotCountsIsPointInTimeCopy(t *testing.T) {
	tbl := NewTable(5*time.Second, 5)
	now := time.Now()
	tbl.MergeCounter("peer-a", 10, now)

	snap := tbl.SnapshotCounts()
	tbl.MergeCounter("peer-a", 20, now.Add(time.Second))

	if snap["peer-a"] != 10 {
		t.Fatalf("snapshot should be frozen at 10, got %d", snap["peer-a"])
	}
}

func TestSetStateTracksFailureCount(t *testing.T) {
	tbl := NewTable(5*time.Second, 5)
	now := time.Now()
	tbl.Upsert("peer-a", now)
	tbl.SetState("peer-a", fsm.Alive, now)

	tbl.SetState("peer-a", fsm.Suspect, now.Add(time.Second))
	entry, _ := tbl.Get("peer-a")
	if entry.FailureCount != 1 {
		t.Fatalf("expected failure count 1, got %d", entry.FailureCount)
	}

	tbl.SetState("peer-a", fsm.Dead, now.Add(2*time.Second))
	entry, _ = tbl.Get("peer-a")
	if entry.FailureCount != 2 {
		t.Fatalf("expected failure count 2, got %d", entry.FailureCount)
	}

	tbl.SetState("peer-a", fsm.Suspect, now.Add(3*time.Second))
	tbl.SetState("peer-a", fsm.Alive, now.Add(4*time.Second))
	entry, _ = tbl.Get("peer-a")
	if entry.FailureCount != 0 {
		t.Fatalf("expected failure count reset to 0, got %d", entry.FailureCount)
	}
}
