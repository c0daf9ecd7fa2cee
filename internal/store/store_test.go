package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/pourover/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "pourover.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestInsertAndListBrews(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).UTC().Add(time.Duration(i) * time.Hour)
		rec := model.BrewRecord{
			StartedAt:      start,
			EndedAt:        start.Add(210 * time.Second),
			BeansGrams:     20,
			WaterGrams:     300,
			ElapsedSeconds: 210,
			Completed:      i != 1,
		}
		id, err := st.InsertBrew(ctx, rec)
		if err != nil {
			t.Fatalf("insert brew: %v", err)
		}
		ids = append(ids, id)
	}

	all, err := st.ListBrews(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("list brews: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 brews, got %d", len(all))
	}
	for i, entry := range all {
		if entry.ID != ids[i] {
			t.Fatalf("expected oldest first, got ids %d at %d", entry.ID, i)
		}
	}
	if all[1].Completed || !all[0].Completed {
		t.Fatalf("completed flag not round-tripped: %+v", all)
	}
	if !all[2].StartedAt.Equal(time.Unix(0, 0).Add(2 * time.Hour)) {
		t.Fatalf("unexpected started_at %v", all[2].StartedAt)
	}

	last, err := st.ListBrews(ctx, model.HistoryConfig{Last: 2})
	if err != nil {
		t.Fatalf("list last brews: %v", err)
	}
	if len(last) != 2 || last[0].ID != ids[1] || last[1].ID != ids[2] {
		t.Fatalf("unexpected last brews: %+v", last)
	}
}

func TestListBrewsEmpty(t *testing.T) {
	st := openTestStore(t)
	brews, err := st.ListBrews(context.Background(), model.HistoryConfig{Last: 5})
	if err != nil {
		t.Fatalf("list brews: %v", err)
	}
	if len(brews) != 0 {
		t.Fatalf("expected no brews, got %d", len(brews))
	}
}
