package theme

import "testing"

func TestValidBounds(t *testing.T) {
	for id, want := range map[int]bool{-1: false, 0: true, 5: true, 6: false} {
		if got := Valid(id); got != want {
			t.Fatalf("Valid(%d) = %v, want %v", id, got, want)
		}
	}
}

func TestGetFallsBackToDefault(t *testing.T) {
	if Get(42).ID != 0 || Get(-3).ID != 0 {
		t.Fatal("unknown ids should resolve to the default theme")
	}
	if Get(3).Background != "#000000" {
		t.Fatalf("unexpected dark theme: %+v", Get(3))
	}
}

func TestAllInIDOrder(t *testing.T) {
	all := All()
	if len(all) != Count {
		t.Fatalf("expected %d themes, got %d", Count, len(all))
	}
	for i, th := range all {
		if th.ID != i || th.Name == "" || th.Foreground == "" || th.Background == "" {
			t.Fatalf("theme %d incomplete: %+v", i, th)
		}
	}
	all[0].Name = "mutated"
	if Get(0).Name == "mutated" {
		t.Fatal("All must return a copy")
	}
}
