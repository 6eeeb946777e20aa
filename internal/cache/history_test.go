package cache_test

import (
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/personamatch/engine/internal/cache"
)

func newTestHistoryStore(t *testing.T) *cache.HistoryStore {
	t.Helper()
	db, err := cache.Open(filepath.Join(t.TempDir(), "history.db") + "?_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := cache.NewHistoryStore(db)
	if err != nil {
		t.Fatalf("NewHistoryStore: %v", err)
	}
	return store
}

func TestHistoryStore_RecordAndQueryWindow(t *testing.T) {
	store := newTestHistoryStore(t)

	scores := []float64{90, 80, 70, 60, 50}
	for _, s := range scores {
		if err := store.Record("req-1", "alice", "bob", cache.KindMatchingScore, s); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.QueryWindow("alice", 5)
	if err != nil {
		t.Fatalf("QueryWindow: %v", err)
	}
	if len(got) != len(scores) {
		t.Fatalf("QueryWindow returned %d scores, want %d", len(got), len(scores))
	}
	// Most-recent first.
	if got[0] != 50 {
		t.Errorf("first (most recent) score = %f, want 50", got[0])
	}
	if got[len(got)-1] != 90 {
		t.Errorf("last (oldest) score = %f, want 90", got[len(got)-1])
	}
}

func TestHistoryStore_QueryWindowRespectsLimit(t *testing.T) {
	store := newTestHistoryStore(t)

	for i := 0; i < 10; i++ {
		if err := store.Record("req-1", "alice", "bob", cache.KindCompatibility, float64(i*10)); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := store.QueryWindow("alice", 3)
	if err != nil {
		t.Fatalf("QueryWindow: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("QueryWindow with windowSize=3 returned %d scores, want 3", len(got))
	}
}

func TestHistoryStore_UsersIsolated(t *testing.T) {
	store := newTestHistoryStore(t)

	if err := store.Record("req-1", "alice", "bob", cache.KindMatchingScore, 90); err != nil {
		t.Fatalf("Record alice: %v", err)
	}
	if err := store.Record("req-1", "bob", "alice", cache.KindMatchingScore, 30); err != nil {
		t.Fatalf("Record bob: %v", err)
	}

	a, err := store.QueryWindow("alice", 10)
	if err != nil {
		t.Fatalf("QueryWindow alice: %v", err)
	}
	b, err := store.QueryWindow("bob", 10)
	if err != nil {
		t.Fatalf("QueryWindow bob: %v", err)
	}
	if len(a) != 1 || a[0] != 90 {
		t.Errorf("alice scores = %v, want [90]", a)
	}
	if len(b) != 1 || b[0] != 30 {
		t.Errorf("bob scores = %v, want [30]", b)
	}

	none, err := store.QueryWindow("carol", 10)
	if err != nil {
		t.Fatalf("QueryWindow carol: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("carol scores = %v, want empty", none)
	}
}

func TestStats(t *testing.T) {
	mean, stddev, count := cache.Stats([]float64{60, 80, 100})
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if math.Abs(mean-80) > 1e-9 {
		t.Errorf("mean = %f, want 80", mean)
	}
	// population stddev = sqrt((400+0+400)/3)
	if want := math.Sqrt(800.0 / 3.0); math.Abs(stddev-want) > 1e-9 {
		t.Errorf("stddev = %f, want %f", stddev, want)
	}

	mean, stddev, count = cache.Stats(nil)
	if count != 0 || mean != 0 || stddev != 0 {
		t.Errorf("Stats(nil) = (%f, %f, %d), want zeros", mean, stddev, count)
	}
}

// SQLite is single-writer; busy errors under contention are tolerated. The
// goal is race detection under -race.
func TestHistoryStore_ConcurrentRecord(t *testing.T) {
	store := newTestHistoryStore(t)

	const workers = 8
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = store.Record("req", "alice", "bob", cache.KindMatchingScore, float64(i))
			}
		}()
	}
	wg.Wait()

	if _, err := store.QueryWindow("alice", 100); err != nil {
		t.Fatalf("QueryWindow after concurrent writes: %v", err)
	}
}
