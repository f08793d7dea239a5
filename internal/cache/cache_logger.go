package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateExamAggregates drops the cached exam rows and dashboard stats for
// one exam. The details entry carries preloaded invite and assignment counts,
// so every write that changes those counts must call this too.
func InvalidateExamAggregates(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Exam,
		fmt.Sprintf("id:%d", examID),
		fmt.Sprintf("details:%d", examID))
	SafeInvalidatePattern(ctx, cm.Stats, "dashboard:*")
}

// InvalidateExamCache invalidates all exam-related caches
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint, creatorID string) {
	InvalidateExamAggregates(ctx, cm, examID)

	SafeInvalidatePattern(ctx, cm.Exam, fmt.Sprintf("creator:%s:*", creatorID))
	SafeInvalidatePattern(ctx, cm.Exam, "list:*")
	SafeInvalidatePattern(ctx, cm.Exam, "visible:*")
}

// InvalidateUserCache invalidates all user-related caches
func InvalidateUserCache(ctx context.Context, cm *CacheManager, userID string) {
	SafeDelete(ctx, cm.User, fmt.Sprintf("id:%s", userID))
	SafeInvalidatePattern(ctx, cm.User, "list:*")
	SafeInvalidatePattern(ctx, cm.Stats, "dashboard:*")
}

// InvalidateInviteCache invalidates token and exam-scoped invite caches along
// with the owning exam's cached aggregates, which embed the invite count.
func InvalidateInviteCache(ctx context.Context, cm *CacheManager, token string, examID uint) {
	SafeDelete(ctx, cm.Invite, fmt.Sprintf("token:%s", token))
	SafeInvalidatePattern(ctx, cm.Invite, fmt.Sprintf("exam:%d:*", examID))
	InvalidateExamAggregates(ctx, cm, examID)
}
