package handle

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{in: "ABC_1", want: "abc_1", ok: true},
		{in: "  andy  ", want: "andy", ok: true},
		{in: "abcd", want: "abcd", ok: true},
		{in: "a234567890123456", want: "a234567890123456", ok: true},
		{in: "abc", ok: false},
		{in: "a2345678901234567", ok: false},
		{in: "with space", ok: false},
		{in: "dash-name", ok: false},
		{in: "xxabc!!", ok: false},
		{in: "ünïcode", ok: false},
		{in: "", ok: false},
	}
	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("Normalize(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("Normalize(%q) error = %v, want ErrInvalid", tc.in, err)
		}
	}
}

// memoryStore guards a handle map with a mutex, standing in for the unique index.
type memoryStore struct {
	mu      sync.Mutex
	byUser  map[string]string
	byOwner map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{byUser: map[string]string{}, byOwner: map[string]string{}}
}

func (m *memoryStore) ClaimHandle(_ context.Context, userID, handle string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	previous := m.byUser[userID]
	if previous == handle {
		return "", ErrSame
	}
	if owner, ok := m.byOwner[handle]; ok && owner != userID {
		return "", ErrTaken
	}
	if previous != "" {
		delete(m.byOwner, previous)
	}
	m.byUser[userID] = handle
	m.byOwner[handle] = userID
	return previous, nil
}

func TestClaimFirstHandle(t *testing.T) {
	r := NewRegistry(newMemoryStore())
	claim, err := r.Claim(context.Background(), "u1", "ABC_1")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if claim.Handle != "abc_1" {
		t.Fatalf("expected normalized handle, got %q", claim.Handle)
	}
	if got := claim.Paths(); !reflect.DeepEqual(got, []string{"/abc_1"}) {
		t.Fatalf("Paths() = %v", got)
	}
}

func TestClaimChangeInvalidatesBothPaths(t *testing.T) {
	r := NewRegistry(newMemoryStore())
	ctx := context.Background()
	if _, err := r.Claim(ctx, "u1", "first"); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	claim, err := r.Claim(ctx, "u1", "second")
	if err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if got := claim.Paths(); !reflect.DeepEqual(got, []string{"/second", "/first"}) {
		t.Fatalf("Paths() = %v", got)
	}
}

func TestClaimSameAndTaken(t *testing.T) {
	r := NewRegistry(newMemoryStore())
	ctx := context.Background()
	if _, err := r.Claim(ctx, "u1", "andy"); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}
	if _, err := r.Claim(ctx, "u1", "ANDY"); !errors.Is(err, ErrSame) {
		t.Fatalf("expected ErrSame, got %v", err)
	}
	if _, err := r.Claim(ctx, "u2", "Andy"); !errors.Is(err, ErrTaken) {
		t.Fatalf("expected ErrTaken, got %v", err)
	}
}

func TestConcurrentClaimExactlyOneWins(t *testing.T) {
	r := NewRegistry(newMemoryStore())
	const callers = 16
	var wins, taken atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			candidate := "shared"
			if i%2 == 0 {
				candidate = "SHARED"
			}
			_, err := r.Claim(context.Background(), string(rune('a'+i)), candidate)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrTaken):
				taken.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	if wins.Load() != 1 || taken.Load() != callers-1 {
		t.Fatalf("wins=%d taken=%d", wins.Load(), taken.Load())
	}
}
