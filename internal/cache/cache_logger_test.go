package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*CacheManager, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewCacheManager(client), mr
}

func seedKey(t *testing.T, helper *CacheHelper, key string) {
	t.Helper()
	if err := helper.SetString(context.Background(), key, "v", time.Minute); err != nil {
		t.Fatalf("SetString(%s): %v", key, err)
	}
}

func assertGone(t *testing.T, helper *CacheHelper, key string) {
	t.Helper()
	exists, err := helper.Exists(context.Background(), key)
	if err != nil {
		t.Fatalf("Exists(%s): %v", key, err)
	}
	if exists {
		t.Errorf("key %s survived invalidation", key)
	}
}

func TestInvalidateExamAggregates(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	seedKey(t, cm.Exam, "id:7")
	seedKey(t, cm.Exam, "details:7")
	seedKey(t, cm.Exam, "id:8")
	seedKey(t, cm.Stats, "dashboard:global")

	InvalidateExamAggregates(ctx, cm, 7)

	assertGone(t, cm.Exam, "id:7")
	assertGone(t, cm.Exam, "details:7")
	assertGone(t, cm.Stats, "dashboard:global")

	if exists, _ := cm.Exam.Exists(ctx, "id:8"); !exists {
		t.Error("unrelated exam entry was invalidated")
	}
}

// An invite write must also drop the owning exam's cached aggregates: the
// details entry embeds InviteCount, and delete-permission checks read it.
func TestInvalidateInviteCache_DropsExamAggregates(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	seedKey(t, cm.Invite, "token:tok-1")
	seedKey(t, cm.Invite, "exam:7:list")
	seedKey(t, cm.Exam, "id:7")
	seedKey(t, cm.Exam, "details:7")
	seedKey(t, cm.Stats, "dashboard:global")

	InvalidateInviteCache(ctx, cm, "tok-1", 7)

	assertGone(t, cm.Invite, "token:tok-1")
	assertGone(t, cm.Invite, "exam:7:list")
	assertGone(t, cm.Exam, "id:7")
	assertGone(t, cm.Exam, "details:7")
	assertGone(t, cm.Stats, "dashboard:global")
}

func TestInvalidateExamCache(t *testing.T) {
	cm, _ := newTestManager(t)
	ctx := context.Background()

	seedKey(t, cm.Exam, "id:3")
	seedKey(t, cm.Exam, "details:3")
	seedKey(t, cm.Exam, "creator:u-1:page1")
	seedKey(t, cm.Exam, "list:all")
	seedKey(t, cm.Exam, "visible:u-2")

	InvalidateExamCache(ctx, cm, 3, "u-1")

	for _, key := range []string{"id:3", "details:3", "creator:u-1:page1", "list:all", "visible:u-2"} {
		assertGone(t, cm.Exam, key)
	}
}
