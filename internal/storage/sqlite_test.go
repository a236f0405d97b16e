package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialpulse/mentions-bot/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleMention(id, entity string, age time.Duration) models.Mention {
	return models.Mention{
		RawItem: models.RawItem{
			ID:        id,
			Platform:  models.PlatformHackerNews,
			Entities:  []string{entity},
			Text:      "Just tried " + entity + " and it works great",
			Author:    "tester",
			Timestamp: time.Now().UTC().Add(-age),
			URL:       "https://news.ycombinator.com/item?id=" + id,
		},
		Entity:         entity,
		Sentiment:      models.SentimentPositive,
		SentimentScore: 0.8,
		Topics:         []string{"reliability"},
		Category:       models.CategoryPraise,
		KeyInsight:     "works great",
		Summary:        "Positive first impression",
		Confidence:     0.9,
		Actionable:     false,
		ResponseStatus: models.StatusPending,
	}
}

func TestUpsertAndGetMention(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	m := sampleMention("hn-1", "Acme", time.Hour)
	rating := 4
	m.Rating = &rating
	draft := "Thanks for the kind words!"
	m.ResponseDraft = &draft

	require.NoError(t, s.UpsertMention(ctx, m))

	got, err := s.GetMention(ctx, "hn-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Entity)
	assert.Equal(t, models.PlatformHackerNews, got.Platform)
	assert.Equal(t, models.SentimentPositive, got.Sentiment)
	assert.Equal(t, 0.8, got.SentimentScore)
	assert.Equal(t, []string{"reliability"}, got.Topics)
	assert.Equal(t, models.CategoryPraise, got.Category)
	assert.Equal(t, models.StatusPending, got.ResponseStatus)
	require.NotNil(t, got.Rating)
	assert.Equal(t, 4, *got.Rating)
	require.NotNil(t, got.ResponseDraft)
	assert.Equal(t, draft, *got.ResponseDraft)
	assert.Nil(t, got.AssignedTo)
	assert.WithinDuration(t, m.Timestamp, got.Timestamp, time.Millisecond)
}

func TestUpsertMentionIdempotent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	m := sampleMention("hn-2", "Acme", time.Hour)
	require.NoError(t, s.UpsertMention(ctx, m))
	require.NoError(t, s.UpsertMention(ctx, m))

	mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme"})
	require.NoError(t, err)
	assert.Len(t, mentions, 1)
}

func TestUpsertMentionPreservesLifecycleFields(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMention(ctx, sampleMention("hn-3", "Acme", time.Hour)))

	_, err := s.AddReply(ctx, "hn-3", models.AuthorHuman, "On it, thanks for flagging")
	require.NoError(t, err)

	// Re-collection of the same item must not undo the operator's reply.
	updated := sampleMention("hn-3", "Acme", time.Hour)
	updated.Sentiment = models.SentimentNegative
	updated.SentimentScore = -0.6
	require.NoError(t, s.UpsertMention(ctx, updated))

	got, err := s.GetMention(ctx, "hn-3")
	require.NoError(t, err)
	assert.Equal(t, models.SentimentNegative, got.Sentiment)
	assert.Equal(t, models.StatusSent, got.ResponseStatus)
}

func TestGetMentionNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetMention(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetMentionsFiltering(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	recent := sampleMention("m-recent", "Acme", time.Hour)
	old := sampleMention("m-old", "Acme", 40*24*time.Hour)
	negative := sampleMention("m-negative", "Acme", 2*time.Hour)
	negative.Sentiment = models.SentimentNegative
	negative.Category = models.CategoryComplaint
	other := sampleMention("m-other", "Globex", 3*time.Hour)

	for _, m := range []models.Mention{recent, old, negative, other} {
		require.NoError(t, s.UpsertMention(ctx, m))
	}

	t.Run("by entity", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Globex"})
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "m-other", mentions[0].ID)
	})

	t.Run("by sentiment", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme", Sentiment: models.SentimentNegative})
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "m-negative", mentions[0].ID)
	})

	t.Run("by category", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme", Category: models.CategoryComplaint})
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "m-negative", mentions[0].ID)
	})

	t.Run("default window excludes old mentions", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme"})
		require.NoError(t, err)
		ids := mentionIDs(mentions)
		assert.NotContains(t, ids, "m-old")
		assert.Contains(t, ids, "m-recent")
	})

	t.Run("wider window includes old mentions", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme", Days: 60})
		require.NoError(t, err)
		assert.Contains(t, mentionIDs(mentions), "m-old")
	})

	t.Run("most recent first", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme"})
		require.NoError(t, err)
		require.Len(t, mentions, 2)
		assert.Equal(t, "m-recent", mentions[0].ID)
		assert.Equal(t, "m-negative", mentions[1].ID)
	})

	t.Run("limit applies after ordering", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Acme", Limit: 1})
		require.NoError(t, err)
		require.Len(t, mentions, 1)
		assert.Equal(t, "m-recent", mentions[0].ID)
	})

	t.Run("no matches yields empty slice", func(t *testing.T) {
		mentions, err := s.GetMentions(ctx, MentionFilter{Entity: "Initech"})
		require.NoError(t, err)
		assert.Empty(t, mentions)
	})
}

func TestAddReplyMarksMentionSent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMention(ctx, sampleMention("hn-4", "Acme", time.Hour)))

	reply, err := s.AddReply(ctx, "hn-4", models.AuthorAI, "Sorry to hear that, we are looking into it")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ID)
	assert.Equal(t, "hn-4", reply.MentionID)
	assert.Equal(t, models.AuthorAI, reply.AuthorKind)
	assert.False(t, reply.CreatedAt.IsZero())

	got, err := s.GetMention(ctx, "hn-4")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, got.ResponseStatus)
}

func TestAddReplyUnknownMention(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.AddReply(ctx, "missing", models.AuthorHuman, "hello?")
	assert.ErrorIs(t, err, ErrNotFound)

	replies, err := s.ListReplies(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, replies)
}

func TestListRepliesChronological(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMention(ctx, sampleMention("hn-5", "Acme", time.Hour)))

	first, err := s.AddReply(ctx, "hn-5", models.AuthorAI, "Drafting a response")
	require.NoError(t, err)
	second, err := s.AddReply(ctx, "hn-5", models.AuthorHuman, "Posted the final answer")
	require.NoError(t, err)

	replies, err := s.ListReplies(ctx, "hn-5")
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, first.ID, replies[0].ID)
	assert.Equal(t, second.ID, replies[1].ID)
	assert.True(t, !replies[1].CreatedAt.Before(replies[0].CreatedAt))
}

func TestPatchMention(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMention(ctx, sampleMention("hn-6", "Acme", time.Hour)))

	t.Run("empty patch rejected", func(t *testing.T) {
		_, err := s.PatchMention(ctx, "hn-6", MentionPatch{})
		assert.ErrorIs(t, err, ErrEmptyPatch)
	})

	t.Run("invalid status rejected", func(t *testing.T) {
		bogus := models.ResponseStatus("resolved")
		_, err := s.PatchMention(ctx, "hn-6", MentionPatch{ResponseStatus: &bogus})
		assert.ErrorIs(t, err, ErrInvalidStatus)
	})

	t.Run("unknown mention", func(t *testing.T) {
		status := models.StatusIgnored
		_, err := s.PatchMention(ctx, "missing", MentionPatch{ResponseStatus: &status})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("applies partial update", func(t *testing.T) {
		status := models.StatusIgnored
		actionable := true
		assignee := "sam"
		got, err := s.PatchMention(ctx, "hn-6", MentionPatch{
			ResponseStatus: &status,
			Actionable:     &actionable,
			AssignedTo:     &assignee,
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusIgnored, got.ResponseStatus)
		assert.True(t, got.Actionable)
		require.NotNil(t, got.AssignedTo)
		assert.Equal(t, "sam", *got.AssignedTo)
		// Untouched analysis fields survive.
		assert.Equal(t, models.SentimentPositive, got.Sentiment)
	})
}

func TestCreateCampaignAppliesStatusTransitions(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	pending := sampleMention("c-pending", "Acme", time.Hour)
	replied := sampleMention("c-replied", "Acme", 2*time.Hour)
	ignored := sampleMention("c-ignored", "Acme", 3*time.Hour)
	for _, m := range []models.Mention{pending, replied, ignored} {
		require.NoError(t, s.UpsertMention(ctx, m))
	}
	_, err := s.AddReply(ctx, "c-replied", models.AuthorHuman, "answered")
	require.NoError(t, err)
	ignoredStatus := models.StatusIgnored
	_, err = s.PatchMention(ctx, "c-ignored", MentionPatch{ResponseStatus: &ignoredStatus})
	require.NoError(t, err)

	created, err := s.CreateCampaign(ctx, models.Campaign{
		Topic:             "reliability",
		Summary:           "Cluster of reliability chatter",
		SentimentLabel:    "mixed",
		TriggerCount:      3,
		RelatedMentionIDs: []string{"c-pending", "c-replied", "c-ignored"},
	}, true)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.CampaignStatusActive, created.Status)

	for id, want := range map[string]models.ResponseStatus{
		"c-pending": models.StatusInCampaign,
		"c-replied": models.StatusInCampaign,
		"c-ignored": models.StatusIgnored,
	} {
		got, err := s.GetMention(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.ResponseStatus, "mention %s", id)
	}
}

func TestCreateCampaignMissingMentionAborts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMention(ctx, sampleMention("c-1", "Acme", time.Hour)))

	_, err := s.CreateCampaign(ctx, models.Campaign{
		Topic:             "pricing",
		RelatedMentionIDs: []string{"c-1", "ghost"},
	}, true)
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing from the aborted transaction may stick.
	campaigns, err := s.ListCampaigns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, campaigns)

	got, err := s.GetMention(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.ResponseStatus)
}

func TestCreateCampaignWithoutApply(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertMention(ctx, sampleMention("c-2", "Acme", time.Hour)))

	// Unvalidated ids are allowed when the caller opts out of transitions.
	created, err := s.CreateCampaign(ctx, models.Campaign{
		Topic:             "onboarding",
		RelatedMentionIDs: []string{"c-2", "external-id"},
	}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"c-2", "external-id"}, created.RelatedMentionIDs)

	got, err := s.GetMention(ctx, "c-2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.ResponseStatus)
}

func TestListCampaignsMostRecentFirst(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	older := models.Campaign{Topic: "older", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	newer := models.Campaign{Topic: "newer", CreatedAt: time.Now().UTC().Add(-time.Hour)}
	_, err := s.CreateCampaign(ctx, older, false)
	require.NoError(t, err)
	_, err = s.CreateCampaign(ctx, newer, false)
	require.NoError(t, err)

	campaigns, err := s.ListCampaigns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	assert.Equal(t, "newer", campaigns[0].Topic)
	assert.Equal(t, "older", campaigns[1].Topic)
}

func TestMentionFilterCacheKey(t *testing.T) {
	a := MentionFilter{Entity: "Acme"}
	b := MentionFilter{Entity: "Acme", Days: 30, Limit: 50}
	assert.Equal(t, a.CacheKey(), b.CacheKey(), "defaulted and explicit filters must share a key")

	c := MentionFilter{Entity: "Acme", Sentiment: models.SentimentNegative}
	assert.NotEqual(t, a.CacheKey(), c.CacheKey())

	d := MentionFilter{Entity: " Acme "}
	assert.Equal(t, a.CacheKey(), d.CacheKey(), "entity whitespace must not change the key")
}

func mentionIDs(mentions []models.Mention) []string {
	ids := make([]string, 0, len(mentions))
	for _, m := range mentions {
		ids = append(ids, m.ID)
	}
	return ids
}
