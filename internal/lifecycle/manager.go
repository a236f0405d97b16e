// Package lifecycle coordinates mention workflow mutations with the query
// cache. All writes that can change what a mention list looks like go
// through the Manager, which performs the store mutation first and then
// drops the cache, so no later read can serve pre-mutation data.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/socialpulse/mentions-bot/internal/cache"
	"github.com/socialpulse/mentions-bot/internal/models"
	"github.com/socialpulse/mentions-bot/internal/storage"
)

var (
	// ErrInvalidAuthorKind is returned when a reply author is neither
	// "ai" nor "human".
	ErrInvalidAuthorKind = errors.New("lifecycle: invalid author kind")

	// ErrEmptyReply is returned when a reply carries no content.
	ErrEmptyReply = errors.New("lifecycle: empty reply content")
)

// MentionCache is the cache shape the manager owns: mention lists keyed by
// normalized filter.
type MentionCache = cache.Cache[[]models.Mention]

// Manager owns the mention state machine and the cache coherence rules
// around it.
type Manager struct {
	store  storage.StorageInterface
	cache  *MentionCache
	logger *logrus.Logger
}

// NewManager wires a manager to its store and cache.
func NewManager(store storage.StorageInterface, c *MentionCache, logger *logrus.Logger) *Manager {
	return &Manager{store: store, cache: c, logger: logger}
}

// Mentions is the cached read path: equivalent filters within the TTL share
// one store query.
func (m *Manager) Mentions(ctx context.Context, f storage.MentionFilter) ([]models.Mention, error) {
	f = f.Normalized()
	return m.cache.GetOrCompute(ctx, f.CacheKey(), func(ctx context.Context) ([]models.Mention, error) {
		return m.store.GetMentions(ctx, f)
	})
}

// Mention fetches a single mention, bypassing the cache.
func (m *Manager) Mention(ctx context.Context, id string) (models.Mention, error) {
	return m.store.GetMention(ctx, id)
}

// SaveMentions persists freshly analyzed mentions and returns how many were
// stored. Individual failures are logged and skipped; one bad row must not
// sink a whole collection run. The cache is dropped once when anything was
// written.
func (m *Manager) SaveMentions(ctx context.Context, mentions []models.Mention) int {
	saved := 0
	for _, mention := range mentions {
		if err := m.store.UpsertMention(ctx, mention); err != nil {
			m.logger.WithField("mention_id", mention.ID).WithError(err).Error("Failed to store mention")
			continue
		}
		saved++
	}
	if saved > 0 {
		m.cache.InvalidateAll()
	}
	return saved
}

// RecordReply appends a reply and moves the mention to "sent". The author
// kind is parsed case-insensitively.
func (m *Manager) RecordReply(ctx context.Context, mentionID, authorKind, content string) (models.Reply, error) {
	kind, ok := models.ParseAuthorKind(authorKind)
	if !ok {
		return models.Reply{}, fmt.Errorf("%w: %q", ErrInvalidAuthorKind, authorKind)
	}
	if strings.TrimSpace(content) == "" {
		return models.Reply{}, ErrEmptyReply
	}

	reply, err := m.store.AddReply(ctx, mentionID, kind, content)
	if err != nil {
		return models.Reply{}, err
	}
	m.cache.InvalidateAll()

	m.logger.WithFields(logrus.Fields{
		"mention_id": mentionID,
		"author":     string(kind),
	}).Info("Reply recorded, mention marked as sent")
	return reply, nil
}

// Replies lists a mention's replies in chronological order.
func (m *Manager) Replies(ctx context.Context, mentionID string) ([]models.Reply, error) {
	return m.store.ListReplies(ctx, mentionID)
}

// PatchMention applies a partial lifecycle update. The cache is only dropped
// when the store accepted the patch.
func (m *Manager) PatchMention(ctx context.Context, id string, patch storage.MentionPatch) (models.Mention, error) {
	updated, err := m.store.PatchMention(ctx, id, patch)
	if err != nil {
		return models.Mention{}, err
	}
	m.cache.InvalidateAll()

	m.logger.WithField("mention_id", id).Info("Mention lifecycle updated")
	return updated, nil
}

// LaunchCampaign stores a campaign. With applyToMentions set, related
// mentions still in "pending" or "sent" move to "in_campaign"; only then is
// the mention cache affected and dropped.
func (m *Manager) LaunchCampaign(ctx context.Context, c models.Campaign, applyToMentions bool) (models.Campaign, error) {
	created, err := m.store.CreateCampaign(ctx, c, applyToMentions)
	if err != nil {
		return models.Campaign{}, err
	}
	if applyToMentions && len(created.RelatedMentionIDs) > 0 {
		m.cache.InvalidateAll()
	}

	m.logger.WithFields(logrus.Fields{
		"campaign_id": created.ID,
		"topic":       created.Topic,
	}).Info("Campaign launched")
	return created, nil
}

// Campaigns lists campaigns, most recent first.
func (m *Manager) Campaigns(ctx context.Context, limit int) ([]models.Campaign, error) {
	return m.store.ListCampaigns(ctx, limit)
}

// CacheInfo exposes cache statistics for the diagnostics endpoint.
func (m *Manager) CacheInfo() cache.Info {
	return m.cache.Info()
}

// DropCache empties the cache on demand.
func (m *Manager) DropCache() {
	m.cache.InvalidateAll()
}
