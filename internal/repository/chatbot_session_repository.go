package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusvoice/complaint-service/internal/domain"
)

// ChatbotSessionRepository persists student chatbot sessions.
type ChatbotSessionRepository interface {
	Create(ctx context.Context, session *domain.ChatbotSession) error
	Update(ctx context.Context, session *domain.ChatbotSession) error
	GetByID(ctx context.Context, id string) (*domain.ChatbotSession, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ChatbotSession, error)
}

type chatbotSessionRepository struct {
	pool *pgxpool.Pool
}

// NewChatbotSessionRepository constructs repository.
func NewChatbotSessionRepository(pool *pgxpool.Pool) ChatbotSessionRepository {
	return &chatbotSessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, external_conversation_id, started_at, last_activity_at, ended_at`

func (r *chatbotSessionRepository) Create(ctx context.Context, session *domain.ChatbotSession) error {
	const query = `
        INSERT INTO chatbot_sessions (user_id, external_conversation_id)
        VALUES ($1,$2)
        RETURNING id, started_at, last_activity_at`
	return r.pool.QueryRow(ctx, query, session.UserID, session.ExternalConversationID).
		Scan(&session.ID, &session.StartedAt, &session.LastActivityAt)
}

func (r *chatbotSessionRepository) Update(ctx context.Context, session *domain.ChatbotSession) error {
	const query = `
        UPDATE chatbot_sessions SET external_conversation_id=$1, last_activity_at=$2, ended_at=$3
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		session.ExternalConversationID,
		session.LastActivityAt,
		session.EndedAt,
		session.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *chatbotSessionRepository) GetByID(ctx context.Context, id string) (*domain.ChatbotSession, error) {
	return scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM chatbot_sessions WHERE id=$1`, id))
}

func (r *chatbotSessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.ChatbotSession, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+sessionColumns+` FROM chatbot_sessions WHERE user_id=$1 ORDER BY started_at DESC LIMIT 100`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatbotSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *session)
	}
	return result, rows.Err()
}

func scanSession(row pgx.Row) (*domain.ChatbotSession, error) {
	var session domain.ChatbotSession
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.ExternalConversationID,
		&session.StartedAt,
		&session.LastActivityAt,
		&session.EndedAt,
	); err != nil {
		return nil, err
	}
	return &session, nil
}
