package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// Sentinel errors returned by StorageInterface implementations. Callers are
// expected to match them with errors.Is and map them to transport-level
// responses.
var (
	// ErrNotFound is returned when a mention or campaign id does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrEmptyPatch is returned when a patch carries no fields to change.
	ErrEmptyPatch = errors.New("storage: empty patch")

	// ErrInvalidStatus is returned when a patch or transition names an
	// unknown response status.
	ErrInvalidStatus = errors.New("storage: invalid response status")
)

// Defaults applied by MentionFilter.Normalized when the caller leaves the
// corresponding field unset.
const (
	DefaultFilterDays  = 30
	DefaultFilterLimit = 50
)

// MentionFilter narrows a mention query. Zero values mean "no constraint"
// except Days and Limit, which fall back to defaults so that two callers
// asking the same logical question always produce the same normalized filter.
type MentionFilter struct {
	Entity    string
	Sentiment models.Sentiment
	Category  models.Category
	Days      int
	Limit     int
}

// Normalized returns a copy with defaults applied and the entity trimmed.
func (f MentionFilter) Normalized() MentionFilter {
	f.Entity = strings.TrimSpace(f.Entity)
	if f.Days <= 0 {
		f.Days = DefaultFilterDays
	}
	if f.Limit <= 0 {
		f.Limit = DefaultFilterLimit
	}
	return f
}

// CacheKey renders the normalized filter as a stable string. Field order is
// fixed, so equivalent filters share one key regardless of how the caller
// assembled them.
func (f MentionFilter) CacheKey() string {
	n := f.Normalized()
	return fmt.Sprintf("mentions|entity=%s|sentiment=%s|category=%s|days=%d|limit=%d",
		n.Entity, n.Sentiment, n.Category, n.Days, n.Limit)
}

// MentionPatch is a partial update of the lifecycle fields of a mention. Nil
// fields are left untouched.
type MentionPatch struct {
	ResponseStatus *models.ResponseStatus
	Actionable     *bool
	AssignedTo     *string
}

// IsEmpty reports whether the patch changes nothing.
func (p MentionPatch) IsEmpty() bool {
	return p.ResponseStatus == nil && p.Actionable == nil && p.AssignedTo == nil
}

// StorageInterface defines persistence for mentions, replies and campaigns.
type StorageInterface interface {
	// UpsertMention inserts the mention or overwrites the analysis fields
	// of an existing row with the same id. Lifecycle fields of an existing
	// row (response status, draft, assignee, actionable) are preserved so
	// that re-collected items never undo operator actions.
	UpsertMention(ctx context.Context, m models.Mention) error

	// GetMentions returns mentions matching the filter, most recent first.
	GetMentions(ctx context.Context, f MentionFilter) ([]models.Mention, error)

	// GetMention returns a single mention by id or ErrNotFound.
	GetMention(ctx context.Context, id string) (models.Mention, error)

	// AddReply appends a reply to a mention and moves the mention to
	// response status "sent" in the same transaction. Returns ErrNotFound
	// if the mention does not exist; in that case nothing is written.
	AddReply(ctx context.Context, mentionID string, kind models.AuthorKind, content string) (models.Reply, error)

	// ListReplies returns the replies of a mention in chronological order.
	ListReplies(ctx context.Context, mentionID string) ([]models.Reply, error)

	// PatchMention applies a partial lifecycle update and returns the
	// updated mention. Returns ErrEmptyPatch for an empty patch,
	// ErrInvalidStatus for an unknown status and ErrNotFound for an
	// unknown id.
	PatchMention(ctx context.Context, id string, patch MentionPatch) (models.Mention, error)

	// CreateCampaign stores a campaign. When applyToMentions is set, every
	// related mention currently in status "pending" or "sent" is moved to
	// "in_campaign" inside the same transaction; a missing related mention
	// aborts the whole creation with ErrNotFound.
	CreateCampaign(ctx context.Context, c models.Campaign, applyToMentions bool) (models.Campaign, error)

	// ListCampaigns returns campaigns, most recent first.
	ListCampaigns(ctx context.Context, limit int) ([]models.Campaign, error)

	// Close releases the underlying database handle.
	Close() error
}
