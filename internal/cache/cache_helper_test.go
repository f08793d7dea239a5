package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestHelper(t *testing.T) (*CacheHelper, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheHelper(client, "test:"), mr
}

func TestCacheHelper_SetAndGet(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	if err := helper.Set(ctx, "k1", payload{Name: "exam", Count: 3}, time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got payload
	if err := helper.Get(ctx, "k1", &got); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "exam" || got.Count != 3 {
		t.Errorf("got %+v, want {exam 3}", got)
	}
}

func TestCacheHelper_GetMissing(t *testing.T) {
	helper, _ := newTestHelper(t)

	var dest string
	err := helper.Get(context.Background(), "absent", &dest)
	if !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("expected ErrCacheNotFound, got %v", err)
	}
}

func TestCacheHelper_StringRoundTrip(t *testing.T) {
	helper, mr := newTestHelper(t)
	ctx := context.Background()

	if err := helper.SetString(ctx, "token", "abc123", time.Minute); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	got, err := helper.GetString(ctx, "token")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "abc123" {
		t.Errorf("got %q, want %q", got, "abc123")
	}

	// Expiry is honored
	mr.FastForward(2 * time.Minute)
	if _, err := helper.GetString(ctx, "token"); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("expected ErrCacheNotFound after expiry, got %v", err)
	}
}

func TestCacheHelper_Delete(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	if err := helper.SetString(ctx, "a", "1", time.Minute); err != nil {
		t.Fatalf("SetString: %v", err)
	}
	if err := helper.SetString(ctx, "b", "2", time.Minute); err != nil {
		t.Fatalf("SetString: %v", err)
	}

	if err := helper.Delete(ctx, "a", "b"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, key := range []string{"a", "b"} {
		exists, err := helper.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists(%s): %v", key, err)
		}
		if exists {
			t.Errorf("key %s still exists after delete", key)
		}
	}
}

func TestCacheHelper_InvalidatePattern(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	for _, key := range []string{"exam:1", "exam:2", "user:1"} {
		if err := helper.SetString(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("SetString(%s): %v", key, err)
		}
	}

	if err := helper.InvalidatePattern(ctx, "exam:*"); err != nil {
		t.Fatalf("InvalidatePattern: %v", err)
	}

	if exists, _ := helper.Exists(ctx, "exam:1"); exists {
		t.Error("exam:1 survived pattern invalidation")
	}
	if exists, _ := helper.Exists(ctx, "user:1"); !exists {
		t.Error("user:1 removed by unrelated pattern")
	}
}

func TestCacheHelper_GracefulDegradation(t *testing.T) {
	helper := NewCacheHelper(nil, "")
	ctx := context.Background()

	// Writes are silent no-ops without a client
	if err := helper.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Errorf("Set without client: %v", err)
	}
	if err := helper.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete without client: %v", err)
	}

	// Reads report unavailability
	var dest string
	if err := helper.Get(ctx, "k", &dest); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
	if _, err := helper.GetString(ctx, "k"); !errors.Is(err, ErrCacheNotAvailable) {
		t.Errorf("expected ErrCacheNotAvailable, got %v", err)
	}
}

func TestCacheHelper_CacheOrExecute(t *testing.T) {
	helper, _ := newTestHelper(t)
	ctx := context.Background()

	calls := 0
	fetch := func() (interface{}, error) {
		calls++
		return map[string]int{"n": 42}, nil
	}

	var first map[string]int
	if err := helper.CacheOrExecute(ctx, "stats", &first, time.Minute, fetch); err != nil {
		t.Fatalf("CacheOrExecute: %v", err)
	}
	if first["n"] != 42 {
		t.Errorf("got %v, want n=42", first)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}
