package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	logpkg "farmsync/internal/logger"
	"farmsync/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), logpkg.NewLogger(logpkg.LevelOff, io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestLoadSaveRoundTrip(t *testing.T) {
	s := newTestStore(t)

	want := []model.Booking{
		{ID: "bk1", Slot: "2025-02-01 09:00-12:00", Status: model.BookingPending, CreatedAt: "2025-01-20T08:00:00Z"},
		{ID: "bk2", Slot: "2025-02-02 13:00-16:00", Status: model.BookingAccepted, CreatedAt: "2025-01-21T08:00:00Z"},
	}
	if err := Save(s, "incoming_bookings", want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load(s, "incoming_bookings", []model.Booking{})
	if len(got) != len(want) {
		t.Fatalf("Load returned %d bookings, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("booking %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLoadMissingReturnsFallback(t *testing.T) {
	s := newTestStore(t)

	fallback := []model.Slot{{ID: "s1", Date: "2025-01-20", Start: "09:00", End: "17:00"}}
	got := Load(s, "provider_slots", fallback)
	if len(got) != 1 || got[0] != fallback[0] {
		t.Errorf("Load of missing collection = %+v, want fallback %+v", got, fallback)
	}
}

func TestLoadCorruptedReturnsFallback(t *testing.T) {
	s := newTestStore(t)

	if err := os.WriteFile(filepath.Join(s.dir, "alerts_current.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var diagErr error
	s.SetDiagnostic(func(op, name string, err error) {
		if op == "load" && name == "alerts_current" {
			diagErr = err
		}
	})

	got := Load(s, "alerts_current", []model.FarmerAlert{})
	if len(got) != 0 {
		t.Errorf("Load of corrupted collection = %+v, want empty fallback", got)
	}
	if diagErr == nil {
		t.Error("diagnostic sink not notified of corrupt read")
	}
}

func TestSaveReplacesPriorValue(t *testing.T) {
	s := newTestStore(t)

	if err := Save(s, "provider_slots", []model.Slot{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := Save(s, "provider_slots", []model.Slot{{ID: "c"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load(s, "provider_slots", []model.Slot{})
	if len(got) != 1 || got[0].ID != "c" {
		t.Errorf("Load after overwrite = %+v, want single slot c", got)
	}
}

func TestSaveFiresChangeHooks(t *testing.T) {
	s := newTestStore(t)

	var names []string
	s.OnChange(func(name string) { names = append(names, name) })
	s.OnChange(func(name string) { names = append(names, name+"/second") })

	if err := Save(s, "incoming_bookings", []model.Booking{}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if len(names) != 2 || names[0] != "incoming_bookings" || names[1] != "incoming_bookings/second" {
		t.Errorf("change hooks observed %v", names)
	}
}
