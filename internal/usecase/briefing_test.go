package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyDigest/internal/domain"
	"DailyDigest/internal/infrastructure/storage"
)

func interests(topics ...string) []domain.Interest {
	out := make([]domain.Interest, 0, len(topics))
	for _, topic := range topics {
		out = append(out, domain.Interest{Topic: topic, Explanation: "news about " + topic})
	}
	return out
}

func TestRegisterBuildsPersistsAndEmails(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{
		"AI":      {"neural nets"},
		"Climate": {"sea levels"},
	})
	h.ingest("neural nets", "sea levels", "cooking")

	res, err := h.pipeline.Register(context.Background(), " a@example.com ", interests("AI", "Climate"))
	require.NoError(t, err)

	b := res.Briefing
	require.Len(t, b.Topics, 2)
	assert.Equal(t, "AI", b.Topics[0].Title)
	assert.Equal(t, "Climate", b.Topics[1].Title)
	require.Len(t, b.Topics[0].Articles, 1)
	assert.Equal(t, "neural nets", b.Topics[0].Articles[0].Title)
	assert.Equal(t, "news.test", b.Topics[0].Articles[0].Source)
	assert.Equal(t, "Fresh developments this week.", b.Topics[0].Summary)
	assert.Equal(t, "a@example.com", b.UserID)
	assert.Equal(t, "October 18, 2026", b.Date)

	assert.Equal(t, domain.BriefingKey("a@example.com", h.clock.Now()), res.Key)
	stored, err := h.pipeline.GetBriefingByKey(context.Background(), res.Key)
	require.NoError(t, err)
	assert.Equal(t, b.Topics, stored.Topics)

	assert.True(t, res.Emailed)
	require.Len(t, h.sender.sent, 1)
	assert.Contains(t, h.sender.sent[0].HTML, "/briefing?id=")

	user, err := h.users.Get(context.Background(), "a@example.com")
	require.NoError(t, err)
	assert.Len(t, user.Interests, 2)
}

func TestBuildBriefingOmitsTopicsWithoutMatches(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}})
	h.ingest("go release", "rust release")

	res, err := h.pipeline.Register(context.Background(), "a@example.com", interests("Rust", "Go", "Zig"))
	require.NoError(t, err)

	require.Len(t, res.Briefing.Topics, 1)
	assert.Equal(t, "Go", res.Briefing.Topics[0].Title)
}

func TestBuildBriefingVacuousCasesSkipOracle(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)
	h.ingest("anything")

	res, err := h.pipeline.Register(context.Background(), "none@example.com", nil)
	require.NoError(t, err)
	assert.Empty(t, res.Briefing.Topics)
	assert.NotNil(t, res.Briefing.Topics)
	assert.Empty(t, res.Key)
	assert.False(t, res.Emailed)

	empty := newHarness(nil)
	res = empty.pipeline.BuildBriefing(context.Background(), domain.User{Email: "a@example.com", Interests: interests("Go")}, nil)
	assert.Empty(t, res.Briefing.Topics)
	assert.Empty(t, res.Key)

	assert.Zero(t, h.oracle.Calls())
	assert.Zero(t, empty.oracle.Calls())
	assert.Empty(t, h.sender.sent)
}

func TestBuildBriefingSurvivesFailedEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}})
	h.sender.err = errors.New("provider returned 500")
	h.ingest("go release")

	res, err := h.pipeline.Register(context.Background(), "a@example.com", interests("Go"))
	require.NoError(t, err)

	assert.False(t, res.Emailed)
	require.NotEmpty(t, res.Key)
	require.Len(t, res.Briefing.Topics, 1)

	stored, err := h.pipeline.GetBriefingByKey(context.Background(), res.Key)
	require.NoError(t, err)
	assert.Equal(t, "Go", stored.Topics[0].Title)
}

func TestBuildBriefingPersistenceFailureStillReturnsBriefing(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}}, withBriefingStore(brokenKV{storage.NewMemoryStore()}))
	h.ingest("go release")

	res, err := h.pipeline.Register(context.Background(), "a@example.com", interests("Go"))
	require.NoError(t, err)

	assert.Len(t, res.Briefing.Topics, 1)
	assert.Empty(t, res.Key)
	assert.False(t, res.Emailed)
	assert.Empty(t, h.sender.sent)
}

func TestBuildBriefingToleratesFailedBatches(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"a", "b"}})
	h.oracle.fail = func(prompt string) error {
		if between(prompt, `Title: "`, `"`) == "b" {
			return errors.New("overloaded")
		}
		return nil
	}
	h.ingest("a", "b")

	res, err := h.pipeline.Register(context.Background(), "a@example.com", interests("Go"))
	require.NoError(t, err)

	// Both pairs share the single batch, so the whole batch is dropped.
	assert.Empty(t, res.Briefing.Topics)
}

func TestGetBriefing(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"go release"}})
	ctx := context.Background()

	_, err := h.pipeline.GetBriefing(ctx, "")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.pipeline.GetBriefing(ctx, "ghost@example.com")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, h.users.Put(ctx, domain.User{Email: "a@example.com", Interests: interests("Go")}))
	h.ingest("go release")

	res, err := h.pipeline.GetBriefing(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, res.Briefing.Topics, 1)
}

func TestGetBriefingOnlySeesRecentArticles(t *testing.T) {
	t.Parallel()

	h := newHarness(map[string][]string{"Go": {"old news", "new news"}})
	ctx := context.Background()
	require.NoError(t, h.users.Put(ctx, domain.User{Email: "a@example.com", Interests: interests("Go")}))

	h.ingest("old news")
	h.clock.Advance(30 * time.Hour)
	h.ingest("new news")

	res, err := h.pipeline.GetBriefing(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, res.Briefing.Topics, 1)
	require.Len(t, res.Briefing.Topics[0].Articles, 1)
	assert.Equal(t, "new news", res.Briefing.Topics[0].Articles[0].Title)
}

func TestGetBriefingByKey(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)
	ctx := context.Background()

	_, err := h.pipeline.GetBriefingByKey(ctx, " ")
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.pipeline.GetBriefingByKey(ctx, "briefing:nobody@example.com:2026-10-18T08:00:00.000Z")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendBriefing(t *testing.T) {
	t.Parallel()

	h := newHarness(nil)
	ctx := context.Background()
	briefing := domain.NewBriefing("a@example.com", h.clock.Now())

	_, err := h.pipeline.SendBriefing(ctx, "", briefing)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = h.pipeline.SendBriefing(ctx, "a@example.com", domain.Briefing{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	ok, err := h.pipeline.SendBriefing(ctx, "a@example.com", briefing)
	require.NoError(t, err)
	assert.True(t, ok)
	require.Len(t, h.sender.sent, 1)
	assert.NotContains(t, h.sender.sent[0].HTML, "/briefing?id=")
}
