package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"support-service/internal/models"
)

var ErrRequestNotFound = errors.New("request not found")

// RequestFilter narrows request listings. An empty UserID means all
// users (admin scope); an empty Status means all statuses.
type RequestFilter struct {
	UserID   string
	Status   string
	Archived bool
}

// RequestRepository abstracts support-request persistence.
type RequestRepository interface {
	Create(ctx context.Context, userID, title, description, priority string) (models.Request, error)
	GetByID(ctx context.Context, id string) (models.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]models.Request, error)
	UpdateDetails(ctx context.Context, id, title, description, priority string) (models.Request, error)
	UpdateStatus(ctx context.Context, id, status string, assignedAdminID *string) (models.Request, error)
	SetArchived(ctx context.Context, id string, archived bool) error
	SetMediaURLs(ctx context.Context, id string, media models.AttachmentList) (models.Request, error)
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// RequestRepo is a sqlx implementation of RequestRepository.
type RequestRepo struct {
	db *sqlx.DB
}

// NewRequestRepo constructs a RequestRepo.
func NewRequestRepo(db *sqlx.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `id, user_id, title, description, priority, status, media_urls, archived, assigned_admin_id, created_at, updated_at`

// Create inserts a new request with status "new" and no attachments.
func (r *RequestRepo) Create(ctx context.Context, userID, title, description, priority string) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO requests (id, user_id, title, description, priority, status) VALUES ($1, $2, $3, $4, $5, 'new')
         RETURNING `+requestColumns,
		uuid.NewString(), userID, title, description, priority).StructScan(&req)
	return req, err
}

// GetByID fetches a request by id.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (models.Request, error) {
	var req models.Request
	err := r.db.GetContext(ctx, &req, `SELECT `+requestColumns+` FROM requests WHERE id=$1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Request{}, ErrRequestNotFound
	}
	return req, err
}

// List returns requests matching the filter, most recently active first.
// updated_at is the sole activity signal used for ordering.
func (r *RequestRepo) List(ctx context.Context, filter RequestFilter) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests
        WHERE archived=$1
        AND ($2 = '' OR user_id::text = $2)
        AND ($3 = '' OR status = $3)
        ORDER BY updated_at DESC`
	var requests []models.Request
	err := r.db.SelectContext(ctx, &requests, query, filter.Archived, filter.UserID, filter.Status)
	return requests, err
}

// UpdateDetails rewrites the owner-editable fields and refreshes updated_at.
func (r *RequestRepo) UpdateDetails(ctx context.Context, id, title, description, priority string) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRowxContext(ctx,
		`UPDATE requests SET title=$2, description=$3, priority=$4, updated_at=NOW() WHERE id=$1
         RETURNING `+requestColumns,
		id, title, description, priority).StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Request{}, ErrRequestNotFound
	}
	return req, err
}

// UpdateStatus writes a status value and optional admin assignment.
// No transition table is enforced: any status can follow any other.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id, status string, assignedAdminID *string) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRowxContext(ctx,
		`UPDATE requests SET status=$2, assigned_admin_id=COALESCE($3, assigned_admin_id), updated_at=NOW() WHERE id=$1
         RETURNING `+requestColumns,
		id, status, assignedAdminID).StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Request{}, ErrRequestNotFound
	}
	return req, err
}

// SetArchived toggles the soft-hide flag without touching other fields.
func (r *RequestRepo) SetArchived(ctx context.Context, id string, archived bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE requests SET archived=$2, updated_at=NOW() WHERE id=$1`, id, archived)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}

// SetMediaURLs replaces the attachment list, preserving caller ordering.
func (r *RequestRepo) SetMediaURLs(ctx context.Context, id string, media models.AttachmentList) (models.Request, error) {
	var req models.Request
	err := r.db.QueryRowxContext(ctx,
		`UPDATE requests SET media_urls=$2, updated_at=NOW() WHERE id=$1 RETURNING `+requestColumns,
		id, media).StructScan(&req)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Request{}, ErrRequestNotFound
	}
	return req, err
}

// Touch refreshes updated_at, used when a new message arrives so the
// request floats to the top of list views.
func (r *RequestRepo) Touch(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE requests SET updated_at=NOW() WHERE id=$1`, id)
	return err
}

// Delete removes the request row. Messages cascade; stored attachment
// objects are the caller's concern.
func (r *RequestRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id=$1`, id)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrRequestNotFound
	}
	return nil
}
