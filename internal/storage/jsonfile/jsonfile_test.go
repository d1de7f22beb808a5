package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/slicetally/internal/models"
)

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "data.json")
	store, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	t.Run("missing file loads empty", func(t *testing.T) {
		state, err := store.LoadState(ctx)
		if err != nil {
			t.Fatalf("LoadState failed: %v", err)
		}
		if len(state.Groups) != 0 {
			t.Errorf("groups = %d, want 0", len(state.Groups))
		}
	})

	t.Run("save and load", func(t *testing.T) {
		at := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
		state := models.NewState()
		state.Groups["ABC234"] = models.Group{
			Code:      "ABC234",
			FoodType:  models.FoodType("pastel"),
			CreatedAt: at,
			Participants: map[string]models.Participant{
				"p1": {ID: "p1", Name: "Ana", Slices: 4, JoinedAt: at, UpdatedAt: at},
			},
		}
		if err := store.SaveState(ctx, state); err != nil {
			t.Fatalf("SaveState failed: %v", err)
		}

		loaded, err := store.LoadState(ctx)
		if err != nil {
			t.Fatalf("LoadState failed: %v", err)
		}
		p := loaded.Groups["ABC234"].Participants["p1"]
		if p.Name != "Ana" || p.Slices != 4 || !p.JoinedAt.Equal(at) {
			t.Errorf("participant = %+v", p)
		}

		entries, err := os.ReadDir(filepath.Dir(path))
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) != 1 {
			t.Errorf("data dir has %d entries, want only the snapshot", len(entries))
		}
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := store.LoadState(ctx); err == nil {
			t.Error("expected error for corrupt snapshot")
		}
	})

	t.Run("empty file loads empty", func(t *testing.T) {
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatal(err)
		}
		state, err := store.LoadState(ctx)
		if err != nil {
			t.Fatalf("LoadState failed: %v", err)
		}
		if len(state.Groups) != 0 {
			t.Errorf("groups = %d, want 0", len(state.Groups))
		}
	})
}
