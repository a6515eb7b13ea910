package persistence

import (
	"path/filepath"
	"testing"
)

func TestPositionStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	store := NewPositionStore(path)

	want := map[string]PositionRecord{
		"ETH": {Symbol: "ETH", SizeUSD: 1000, Direction: "long_hedge_short_primary", PrimaryFilled: 1.0, HedgeFilled: 1.0, IsBalanced: true},
	}
	store.Save(want)

	got := store.Load()
	if len(got) != 1 || got["ETH"] != want["ETH"] {
		t.Fatalf("round-trip mismatch: want %+v got %+v", want, got)
	}
}

func TestPositionStoreLoadMissingFileReturnsEmpty(t *testing.T) {
	store := NewPositionStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	got := store.Load()
	if len(got) != 0 {
		t.Fatalf("expected empty map for missing file, got %+v", got)
	}
}

func TestPositionStoreLoadCorruptFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	if err := writeJSONAtomic(path, "not-a-map"); err != nil {
		t.Fatal(err)
	}
	store := NewPositionStore(path)
	got := store.Load()
	if len(got) != 0 {
		t.Fatalf("expected empty map for corrupt file, got %+v", got)
	}
}

func TestPositionStoreClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "positions.json")
	store := NewPositionStore(path)
	store.Save(map[string]PositionRecord{"ETH": {Symbol: "ETH"}})
	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := store.Load(); len(got) != 0 {
		t.Fatalf("expected empty after clear, got %+v", got)
	}
}
