package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// ComplaintFilter captures listing parameters for every role's complaint view.
type ComplaintFilter struct {
	SubmitterID  *string
	DepartmentID *string
	Statuses     []domain.ComplaintStatus
	Types        []domain.ComplaintType
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Page
}

// ComplaintRepository encapsulates complaint persistence.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.Complaint, error)
	ExistsByTrackingCode(ctx context.Context, code string) (bool, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, tracking_code, submitter_id, type, title, description, status, department_id, created_at, updated_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (tracking_code, submitter_id, type, title, description, status, department_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		complaint.TrackingCode,
		complaint.SubmitterID,
		string(complaint.Type),
		complaint.Title,
		complaint.Description,
		string(complaint.Status),
		complaint.DepartmentID,
	).Scan(&complaint.ID, &complaint.CreatedAt, &complaint.UpdatedAt)
	return translateError(err)
}

// Update writes status and department. Single-row update, no optimistic locking.
func (r *complaintRepository) Update(ctx context.Context, complaint *domain.Complaint) error {
	const query = `
        UPDATE complaints SET status=$1, department_id=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		string(complaint.Status),
		complaint.DepartmentID,
		complaint.ID,
	).Scan(&complaint.UpdatedAt)
}

func (r *complaintRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	return scanComplaint(r.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE id=$1`, id))
}

func (r *complaintRepository) GetByTrackingCode(ctx context.Context, code string) (*domain.Complaint, error) {
	return scanComplaint(r.pool.QueryRow(ctx, `SELECT `+complaintColumns+` FROM complaints WHERE tracking_code=$1`, code))
}

func (r *complaintRepository) ExistsByTrackingCode(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM complaints WHERE tracking_code=$1)`, code).Scan(&exists)
	return exists, err
}

func (r *complaintRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterID != nil {
		args = append(args, *filter.SubmitterID)
		clauses = append(clauses, fmt.Sprintf("submitter_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, string(status))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, kind := range filter.Types {
			args = append(args, string(kind))
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(tracking_code) LIKE %s)", placeholder, placeholder, placeholder))
	}

	limit, offset := filter.normalize()
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Complaint
	for rows.Next() {
		complaint, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *complaint)
	}
	return result, rows.Err()
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var (
		complaint domain.Complaint
		kind      string
		status    string
	)
	if err := row.Scan(
		&complaint.ID,
		&complaint.TrackingCode,
		&complaint.SubmitterID,
		&kind,
		&complaint.Title,
		&complaint.Description,
		&status,
		&complaint.DepartmentID,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
	); err != nil {
		return nil, err
	}
	complaint.Type = domain.ComplaintType(kind)
	complaint.Status = domain.ComplaintStatus(status)
	return &complaint, nil
}
