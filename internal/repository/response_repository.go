package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// ResponseFilter narrows the general manager's review queue.
type ResponseFilter struct {
	ComplaintID *string
	Visible     *bool
	Page
}

// ResponseRepository persists complaint responses.
type ResponseRepository interface {
	Create(ctx context.Context, response *domain.Response) error
	UpdateVisibility(ctx context.Context, response *domain.Response) error
	GetByID(ctx context.Context, id string) (*domain.Response, error)
	ListByComplaint(ctx context.Context, complaintID string, visibleOnly bool) ([]domain.Response, error)
	List(ctx context.Context, filter ResponseFilter) ([]domain.Response, error)
}

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository constructs repository.
func NewResponseRepository(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepository{pool: pool}
}

const responseColumns = `id, complaint_id, sender_id, message, visible_to_student, published_at, created_at`

func (r *responseRepository) Create(ctx context.Context, response *domain.Response) error {
	const query = `
        INSERT INTO responses (complaint_id, sender_id, message, visible_to_student, published_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		response.ComplaintID,
		response.SenderID,
		response.Message,
		response.VisibleToStudent,
		response.PublishedAt,
	).Scan(&response.ID, &response.CreatedAt)
}

func (r *responseRepository) UpdateVisibility(ctx context.Context, response *domain.Response) error {
	const query = `
        UPDATE responses SET visible_to_student=$1, published_at=$2
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, response.VisibleToStudent, response.PublishedAt, response.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *responseRepository) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	return scanResponse(r.pool.QueryRow(ctx, `SELECT `+responseColumns+` FROM responses WHERE id=$1`, id))
}

func (r *responseRepository) ListByComplaint(ctx context.Context, complaintID string, visibleOnly bool) ([]domain.Response, error) {
	filter := ResponseFilter{ComplaintID: &complaintID, Page: Page{Limit: 200}}
	if visibleOnly {
		visible := true
		filter.Visible = &visible
	}
	return r.List(ctx, filter)
}

func (r *responseRepository) List(ctx context.Context, filter ResponseFilter) ([]domain.Response, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.ComplaintID != nil {
		args = append(args, *filter.ComplaintID)
		clauses = append(clauses, fmt.Sprintf("complaint_id=$%d", len(args)))
	}
	if filter.Visible != nil {
		args = append(args, *filter.Visible)
		clauses = append(clauses, fmt.Sprintf("visible_to_student=$%d", len(args)))
	}
	limit, offset := filter.normalize()
	query := fmt.Sprintf(`SELECT %s FROM responses WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		responseColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Response
	for rows.Next() {
		response, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *response)
	}
	return result, rows.Err()
}

func scanResponse(row pgx.Row) (*domain.Response, error) {
	var response domain.Response
	if err := row.Scan(
		&response.ID,
		&response.ComplaintID,
		&response.SenderID,
		&response.Message,
		&response.VisibleToStudent,
		&response.PublishedAt,
		&response.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &response, nil
}
