package services

import (
	"context"
	"fmt"
	"strings"

	"jobRadarAPI/internal/types/query"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type QueryService struct {
	db *pgxpool.Pool
}

func NewQueryService(db *pgxpool.Pool) *QueryService {
	return &QueryService{db: db}
}

const queryColumns = `
	id, user_id, keywords, work_types, city_id, location_string, is_active,
	created_at, updated_at
`

func scanQuery(row pgx.Row) (*query.Query, error) {
	q := &query.Query{}
	err := row.Scan(
		&q.ID, &q.UserID, &q.Keywords, &q.WorkTypes, &q.CityID,
		&q.LocationString, &q.IsActive, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QueryService) ListQueries(ctx context.Context, userID string) ([]*query.Query, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+queryColumns+`
		FROM queries
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list queries: %w", err)
	}
	defer rows.Close()

	var queries []*query.Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan query: %w", err)
		}
		queries = append(queries, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate queries: %w", err)
	}
	return queries, nil
}

func (s *QueryService) GetQuery(ctx context.Context, userID string, queryID int64) (*query.Query, error) {
	q, err := scanQuery(s.db.QueryRow(ctx, `
		SELECT `+queryColumns+`
		FROM queries
		WHERE id = $1 AND user_id = $2
	`, queryID, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("query not found")
		}
		return nil, fmt.Errorf("failed to get query: %w", err)
	}
	return q, nil
}

func (s *QueryService) CreateQuery(ctx context.Context, userID string, req *query.CreateQueryRequest) (*query.Query, error) {
	if strings.TrimSpace(req.Keywords) == "" {
		return nil, fmt.Errorf("keywords are required")
	}
	if len(req.WorkTypes) == 0 {
		return nil, fmt.Errorf("at least one work type is required")
	}

	q, err := scanQuery(s.db.QueryRow(ctx, `
		INSERT INTO queries (user_id, keywords, work_types, city_id, location_string, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING `+queryColumns,
		userID, req.Keywords, req.WorkTypes, req.CityID, req.LocationString))
	if err != nil {
		return nil, fmt.Errorf("failed to create query: %w", err)
	}
	return q, nil
}

func (s *QueryService) UpdateQuery(ctx context.Context, userID string, queryID int64, req *query.UpdateQueryRequest) (*query.Query, error) {
	updates := []string{}
	args := []interface{}{queryID, userID}
	argCount := 3

	if req.Keywords != nil {
		updates = append(updates, fmt.Sprintf("keywords = $%d", argCount))
		args = append(args, *req.Keywords)
		argCount++
	}
	if req.WorkTypes != nil {
		updates = append(updates, fmt.Sprintf("work_types = $%d", argCount))
		args = append(args, req.WorkTypes)
		argCount++
	}
	if req.CityID != nil {
		updates = append(updates, fmt.Sprintf("city_id = $%d", argCount))
		args = append(args, *req.CityID)
		argCount++
	}
	if req.LocationString != nil {
		updates = append(updates, fmt.Sprintf("location_string = $%d", argCount))
		args = append(args, *req.LocationString)
		argCount++
	}
	if req.IsActive != nil {
		updates = append(updates, fmt.Sprintf("is_active = $%d", argCount))
		args = append(args, *req.IsActive)
		argCount++
	}

	if len(updates) == 0 {
		return s.GetQuery(ctx, userID, queryID)
	}

	query := fmt.Sprintf(`
		UPDATE queries
		SET %s, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+queryColumns, strings.Join(updates, ", "))

	q, err := scanQuery(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("query not found")
		}
		return nil, fmt.Errorf("failed to update query: %w", err)
	}
	return q, nil
}

// SetActive pauses or resumes a query.
func (s *QueryService) SetActive(ctx context.Context, userID string, queryID int64, active bool) (*query.Query, error) {
	q, err := scanQuery(s.db.QueryRow(ctx, `
		UPDATE queries
		SET is_active = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+queryColumns, queryID, userID, active))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("query not found")
		}
		return nil, fmt.Errorf("failed to set query active state: %w", err)
	}
	return q, nil
}

func (s *QueryService) DeleteQuery(ctx context.Context, userID string, queryID int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM queries WHERE id = $1 AND user_id = $2`, queryID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete query: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("query not found")
	}
	return nil
}
