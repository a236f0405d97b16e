package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/socialpulse/mentions-bot/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// timeLayout is a fixed-width RFC3339 variant so that stored timestamps sort
// lexicographically in the same order as chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStorage persists mentions, replies and campaigns in a local SQLite
// database. Safe for concurrent use; SQLite serializes writers and the WAL
// journal keeps readers from blocking on them.
type SQLiteStorage struct {
	db     *sql.DB
	logger *logrus.Logger
}

var _ StorageInterface = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (creating if needed) the database at path and
// applies the schema.
func NewSQLiteStorage(path string, logger *logrus.Logger) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.WithField("path", path).Info("SQLite storage initialized")
	return &SQLiteStorage{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// UpsertMention inserts the mention or, when the id already exists, rewrites
// its analysis fields while leaving the lifecycle fields untouched.
func (s *SQLiteStorage) UpsertMention(ctx context.Context, m models.Mention) error {
	entities, err := json.Marshal(m.Entities)
	if err != nil {
		return fmt.Errorf("failed to encode entities: %w", err)
	}
	topics, err := json.Marshal(m.Topics)
	if err != nil {
		return fmt.Errorf("failed to encode topics: %w", err)
	}

	status := m.ResponseStatus
	if status == "" {
		status = models.StatusPending
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mentions (
			id, entity, platform, entities, text, author, url, timestamp,
			sentiment, sentiment_score, rating, topics, category,
			key_insight, summary, confidence, actionable,
			response_status, response_draft, assigned_to
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entity          = excluded.entity,
			platform        = excluded.platform,
			entities        = excluded.entities,
			text            = excluded.text,
			author          = excluded.author,
			url             = excluded.url,
			timestamp       = excluded.timestamp,
			sentiment       = excluded.sentiment,
			sentiment_score = excluded.sentiment_score,
			rating          = excluded.rating,
			topics          = excluded.topics,
			category        = excluded.category,
			key_insight     = excluded.key_insight,
			summary         = excluded.summary,
			confidence      = excluded.confidence`,
		m.ID, m.Entity, string(m.Platform), string(entities), m.Text, m.Author, m.URL,
		m.Timestamp.UTC().Format(timeLayout),
		string(m.Sentiment), m.SentimentScore, nullableInt(m.Rating), string(topics), string(m.Category),
		m.KeyInsight, m.Summary, m.Confidence, m.Actionable,
		string(status), nullableString(m.ResponseDraft), nullableString(m.AssignedTo),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mention %s: %w", m.ID, err)
	}
	return nil
}

const mentionColumns = `id, entity, platform, entities, text, author, url, timestamp,
	sentiment, sentiment_score, rating, topics, category,
	key_insight, summary, confidence, actionable,
	response_status, response_draft, assigned_to`

// GetMentions returns mentions matching the filter, most recent first.
func (s *SQLiteStorage) GetMentions(ctx context.Context, f MentionFilter) ([]models.Mention, error) {
	f = f.Normalized()

	conditions := []string{"timestamp > ?"}
	cutoff := time.Now().UTC().AddDate(0, 0, -f.Days)
	args := []interface{}{cutoff.Format(timeLayout)}

	if f.Entity != "" {
		conditions = append(conditions, "entity = ?")
		args = append(args, f.Entity)
	}
	if f.Sentiment != "" {
		conditions = append(conditions, "sentiment = ?")
		args = append(args, string(f.Sentiment))
	}
	if f.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(f.Category))
	}
	args = append(args, f.Limit)

	query := fmt.Sprintf(`SELECT %s FROM mentions WHERE %s ORDER BY timestamp DESC, id DESC LIMIT ?`,
		mentionColumns, strings.Join(conditions, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query mentions: %w", err)
	}
	defer rows.Close()

	mentions := []models.Mention{}
	for rows.Next() {
		m, err := scanMention(rows)
		if err != nil {
			return nil, err
		}
		mentions = append(mentions, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate mentions: %w", err)
	}
	return mentions, nil
}

// GetMention returns a single mention by id.
func (s *SQLiteStorage) GetMention(ctx context.Context, id string) (models.Mention, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM mentions WHERE id = ?`, mentionColumns), id)
	m, err := scanMention(row)
	if err == sql.ErrNoRows {
		return models.Mention{}, ErrNotFound
	}
	if err != nil {
		return models.Mention{}, err
	}
	return m, nil
}

// AddReply inserts the reply and marks the mention as responded to in one
// transaction, so no reader can ever observe a reply against a mention that
// is still pending.
func (s *SQLiteStorage) AddReply(ctx context.Context, mentionID string, kind models.AuthorKind, content string) (models.Reply, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE mentions SET response_status = ? WHERE id = ?`,
		string(models.StatusSent), mentionID)
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to update mention status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return models.Reply{}, ErrNotFound
	}

	reply := models.Reply{
		ID:         uuid.NewString(),
		MentionID:  mentionID,
		AuthorKind: kind,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO replies (id, mention_id, author_kind, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		reply.ID, reply.MentionID, string(reply.AuthorKind), reply.Content,
		reply.CreatedAt.Format(timeLayout))
	if err != nil {
		return models.Reply{}, fmt.Errorf("failed to insert reply: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Reply{}, fmt.Errorf("failed to commit reply: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"mention_id": mentionID,
		"reply_id":   reply.ID,
		"author":     string(kind),
	}).Debug("Reply recorded")
	return reply, nil
}

// ListReplies returns the replies of a mention in chronological order.
func (s *SQLiteStorage) ListReplies(ctx context.Context, mentionID string) ([]models.Reply, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mention_id, author_kind, content, created_at
		 FROM replies WHERE mention_id = ? ORDER BY created_at ASC, id ASC`, mentionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query replies: %w", err)
	}
	defer rows.Close()

	replies := []models.Reply{}
	for rows.Next() {
		var r models.Reply
		var kind, created string
		if err := rows.Scan(&r.ID, &r.MentionID, &kind, &r.Content, &created); err != nil {
			return nil, fmt.Errorf("failed to scan reply: %w", err)
		}
		r.AuthorKind = models.AuthorKind(kind)
		r.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("failed to parse reply timestamp: %w", err)
		}
		replies = append(replies, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate replies: %w", err)
	}
	return replies, nil
}

// PatchMention applies a partial lifecycle update and returns the updated row.
func (s *SQLiteStorage) PatchMention(ctx context.Context, id string, patch MentionPatch) (models.Mention, error) {
	if patch.IsEmpty() {
		return models.Mention{}, ErrEmptyPatch
	}

	sets := []string{}
	args := []interface{}{}
	if patch.ResponseStatus != nil {
		if !models.ValidResponseStatus(*patch.ResponseStatus) {
			return models.Mention{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *patch.ResponseStatus)
		}
		sets = append(sets, "response_status = ?")
		args = append(args, string(*patch.ResponseStatus))
	}
	if patch.Actionable != nil {
		sets = append(sets, "actionable = ?")
		args = append(args, *patch.Actionable)
	}
	if patch.AssignedTo != nil {
		sets = append(sets, "assigned_to = ?")
		args = append(args, *patch.AssignedTo)
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE mentions SET %s WHERE id = ?`, strings.Join(sets, ", ")), args...)
	if err != nil {
		return models.Mention{}, fmt.Errorf("failed to patch mention %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.Mention{}, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return models.Mention{}, ErrNotFound
	}
	return s.GetMention(ctx, id)
}

// CreateCampaign stores the campaign and, when requested, moves its related
// mentions into the campaign in the same transaction.
func (s *SQLiteStorage) CreateCampaign(ctx context.Context, c models.Campaign, applyToMentions bool) (models.Campaign, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CampaignStatusActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	related, err := json.Marshal(c.RelatedMentionIDs)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("failed to encode related mention ids: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Campaign{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO campaigns (id, topic, summary, sentiment_label, trigger_count, related_mention_ids, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Topic, c.Summary, c.SentimentLabel, c.TriggerCount, string(related),
		c.Status, c.CreatedAt.Format(timeLayout))
	if err != nil {
		return models.Campaign{}, fmt.Errorf("failed to insert campaign: %w", err)
	}

	if applyToMentions {
		for _, mentionID := range c.RelatedMentionIDs {
			var status string
			err := tx.QueryRowContext(ctx,
				`SELECT response_status FROM mentions WHERE id = ?`, mentionID).Scan(&status)
			if err == sql.ErrNoRows {
				return models.Campaign{}, fmt.Errorf("related mention %s: %w", mentionID, ErrNotFound)
			}
			if err != nil {
				return models.Campaign{}, fmt.Errorf("failed to look up mention %s: %w", mentionID, err)
			}
			switch models.ResponseStatus(status) {
			case models.StatusPending, models.StatusSent:
				_, err = tx.ExecContext(ctx,
					`UPDATE mentions SET response_status = ? WHERE id = ?`,
					string(models.StatusInCampaign), mentionID)
				if err != nil {
					return models.Campaign{}, fmt.Errorf("failed to move mention %s into campaign: %w", mentionID, err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Campaign{}, fmt.Errorf("failed to commit campaign: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"topic":       c.Topic,
		"mentions":    len(c.RelatedMentionIDs),
		"applied":     applyToMentions,
	}).Info("Campaign created")
	return c, nil
}

// ListCampaigns returns campaigns, most recent first.
func (s *SQLiteStorage) ListCampaigns(ctx context.Context, limit int) ([]models.Campaign, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, summary, sentiment_label, trigger_count, related_mention_ids, status, created_at
		 FROM campaigns ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		var related, created string
		if err := rows.Scan(&c.ID, &c.Topic, &c.Summary, &c.SentimentLabel,
			&c.TriggerCount, &related, &c.Status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}
		if err := json.Unmarshal([]byte(related), &c.RelatedMentionIDs); err != nil {
			return nil, fmt.Errorf("failed to decode related mention ids: %w", err)
		}
		c.CreatedAt, err = time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("failed to parse campaign timestamp: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate campaigns: %w", err)
	}
	return campaigns, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMention(row scanner) (models.Mention, error) {
	var (
		m          models.Mention
		platform   string
		entities   string
		ts         string
		sentiment  string
		rating     sql.NullInt64
		topics     string
		category   string
		status     string
		draft      sql.NullString
		assignedTo sql.NullString
	)
	err := row.Scan(&m.ID, &m.Entity, &platform, &entities, &m.Text, &m.Author, &m.URL, &ts,
		&sentiment, &m.SentimentScore, &rating, &topics, &category,
		&m.KeyInsight, &m.Summary, &m.Confidence, &m.Actionable,
		&status, &draft, &assignedTo)
	if err != nil {
		return models.Mention{}, err
	}

	m.Platform = models.Platform(platform)
	m.Sentiment = models.Sentiment(sentiment)
	m.Category = models.Category(category)
	m.ResponseStatus = models.ResponseStatus(status)

	if err := json.Unmarshal([]byte(entities), &m.Entities); err != nil {
		return models.Mention{}, fmt.Errorf("failed to decode entities: %w", err)
	}
	if err := json.Unmarshal([]byte(topics), &m.Topics); err != nil {
		return models.Mention{}, fmt.Errorf("failed to decode topics: %w", err)
	}
	m.Timestamp, err = time.Parse(timeLayout, ts)
	if err != nil {
		return models.Mention{}, fmt.Errorf("failed to parse mention timestamp: %w", err)
	}
	if rating.Valid {
		v := int(rating.Int64)
		m.Rating = &v
	}
	if draft.Valid {
		m.ResponseDraft = &draft.String
	}
	if assignedTo.Valid {
		m.AssignedTo = &assignedTo.String
	}
	return m, nil
}

func nullableInt(p *int) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func nullableString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
