package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"support-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository defines interactions for request chat messages.
type MessageRepository interface {
	Create(ctx context.Context, requestID string, sender models.User, content string, attachments models.AttachmentList) (models.Message, error)
	ListByRequest(ctx context.Context, requestID string) ([]models.Message, error)
	GetByID(ctx context.Context, messageID string) (models.Message, error)
	MarkRead(ctx context.Context, messageID string) error
	CountUnread(ctx context.Context, requestID, viewerID string) (int, error)
	CountUnreadTotal(ctx context.Context, viewerID string, adminScope bool) (int, error)
	ListChatSummaries(ctx context.Context, viewerID string, adminScope bool) ([]models.ChatSummary, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

const messageColumns = `id, request_id, user_id, sender_name, sender_photo, sender_role, content, attachments, is_read, created_at`

// Create stores a message. Sender name, photo and role are captured at
// write time so later profile edits never change historical display.
func (r *MessageRepo) Create(ctx context.Context, requestID string, sender models.User, content string, attachments models.AttachmentList) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (id, request_id, user_id, sender_name, sender_photo, sender_role, content, attachments)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
         RETURNING `+messageColumns,
		uuid.NewString(), requestID, sender.ID, sender.Name, sender.PhotoURL, sender.Role, content, attachments).StructScan(&msg)
	return msg, err
}

// ListByRequest returns the request's messages ascending by creation time.
func (r *MessageRepo) ListByRequest(ctx context.Context, requestID string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE request_id=$1 ORDER BY created_at ASC`, requestID)
	return msgs, err
}

// GetByID retrieves a single message.
func (r *MessageRepo) GetByID(ctx context.Context, messageID string) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// MarkRead sets the read flag. Idempotent: marking an already-read
// message succeeds without error.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read=TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// CountUnread returns the number of unread messages in a request that
// were not authored by the viewer.
func (r *MessageRepo) CountUnread(ctx context.Context, requestID, viewerID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages WHERE request_id=$1 AND is_read=FALSE AND user_id::text <> $2`,
		requestID, viewerID)
	return count, err
}

// CountUnreadTotal sums unread counts across every request visible to
// the viewer: all requests for admin scope, owned requests otherwise.
func (r *MessageRepo) CountUnreadTotal(ctx context.Context, viewerID string, adminScope bool) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM messages m
         JOIN requests r ON r.id = m.request_id
         WHERE m.is_read=FALSE AND m.user_id::text <> $1 AND ($2 OR r.user_id::text = $1)`,
		viewerID, adminScope)
	return count, err
}

// ListChatSummaries derives the inbox view: one row per request that
// has at least one message, newest conversation first.
func (r *MessageRepo) ListChatSummaries(ctx context.Context, viewerID string, adminScope bool) ([]models.ChatSummary, error) {
	query := `SELECT r.id AS request_id, r.title AS request_title, r.status AS request_status,
            u.name AS dealer_name, u.city AS dealer_city, u.dealer_center AS dealer_center,
            lm.content AS last_message, lm.created_at AS last_message_time,
            (SELECT COUNT(*) FROM messages m2 WHERE m2.request_id = r.id AND m2.is_read=FALSE AND m2.user_id::text <> $1) AS unread_count
        FROM requests r
        JOIN users u ON u.id = r.user_id
        JOIN LATERAL (
            SELECT content, created_at FROM messages m
            WHERE m.request_id = r.id ORDER BY created_at DESC LIMIT 1
        ) lm ON TRUE
        WHERE ($2 OR r.user_id::text = $1)
        ORDER BY lm.created_at DESC`
	var summaries []models.ChatSummary
	err := r.db.SelectContext(ctx, &summaries, query, viewerID, adminScope)
	return summaries, err
}
