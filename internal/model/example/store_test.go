package example

import "testing"

func TestMemoryStoreListIsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	items := store.List()
	items[0].Query = "mutated"

	again := store.List()
	if again[0].Query == "mutated" {
		t.Fatal("List must return a copy")
	}
}

func TestMemoryStoreLookup(t *testing.T) {
	store := NewMemoryStore(Seed())

	got, ok := store.FindByID("exit-load")
	if !ok {
		t.Fatal("expected exit-load example")
	}
	if got.Label != "Exit Load" {
		t.Fatalf("unexpected label: %s", got.Label)
	}

	if _, ok := store.FindByID("missing"); ok {
		t.Fatal("expected lookup miss")
	}

	first, ok := store.At(0)
	if !ok || first.ID != "expense-ratio" {
		t.Fatalf("unexpected first example: %+v", first)
	}
	if _, ok := store.At(3); ok {
		t.Fatal("expected out-of-range miss")
	}
	if _, ok := store.At(-1); ok {
		t.Fatal("expected negative index miss")
	}
}
