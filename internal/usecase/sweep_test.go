package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/domain"
)

func TestNotifyRecentAllUsers(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release", "go survey"}})
	ctx := context.Background()
	require.NoError(t, h.users.Put(ctx, domain.User{Email: "a@example.com", Interests: interests("Go")}))
	require.NoError(t, h.users.Put(ctx, domain.User{Email: "b@example.com", Interests: interests("Cooking")}))
	h.ingest("go release", "go survey", "pasta")

	report, err := h.pipeline.NotifyRecent(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, NotifyReport{RecentArticles: 3, UsersScanned: 2, UsersNotified: 1}, report)

	require.Len(t, h.notifier.digests, 1)
	digest := h.notifier.digests[0]
	assert.Contains(t, digest, "Daily Digest for a@example.com")
	assert.Contains(t, digest, "• go release\n  https://news.test/go-release")
	assert.Contains(t, digest, "• go survey")
	assert.NotContains(t, digest, "pasta")
}

func TestNotifyRecentSingleUser(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}})
	ctx := context.Background()

	_, err := h.pipeline.NotifyRecent(ctx, "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, h.users.Put(ctx, domain.User{Email: "a@example.com", Interests: interests("Go")}))
	require.NoError(t, h.users.Put(ctx, domain.User{Email: "b@example.com", Interests: interests("Go")}))
	h.ingest("go release")

	report, err := h.pipeline.NotifyRecent(ctx, "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, report.UsersScanned)
	assert.Equal(t, 1, report.UsersNotified)
	require.Len(t, h.notifier.digests, 1)
	assert.Contains(t, h.notifier.digests[0], "b@example.com")
}

func TestNotifyRecentWithoutArticlesSkipsOracle(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}})
	ctx := context.Background()
	require.NoError(t, h.users.Put(ctx, domain.User{Email: "a@example.com", Interests: interests("Go")}))

	report, err := h.pipeline.NotifyRecent(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, NotifyReport{}, report)
	assert.Zero(t, h.oracle.Calls())
}

func TestNotifyRecentCountsOnlyPublishedDigests(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}})
	h.notifier.err = assert.AnError
	ctx := context.Background()
	require.NoError(t, h.users.Put(ctx, domain.User{Email: "a@example.com", Interests: interests("Go")}))
	h.ingest("go release")

	report, err := h.pipeline.NotifyRecent(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, report.UsersScanned)
	assert.Zero(t, report.UsersNotified)
}
