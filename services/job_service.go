package services

import (
	"context"
	"fmt"
	"strings"

	"jobRadarAPI/internal/types/job"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type JobService struct {
	db *pgxpool.Pool
}

func NewJobService(db *pgxpool.Pool) *JobService {
	return &JobService{db: db}
}

const jobColumns = `
	id, query_id, user_id, title, company, link, location, posted, salary,
	description, is_deleted, is_applied, scraped_at, created_at
`

var jobSortColumns = map[string]string{
	"posted":  "posted",
	"company": "company",
	"title":   "title",
}

func scanJob(row pgx.Row) (*job.Job, error) {
	j := &job.Job{}
	err := row.Scan(
		&j.ID, &j.QueryID, &j.UserID, &j.Title, &j.Company, &j.Link,
		&j.Location, &j.Posted, &j.Salary, &j.Description, &j.IsDeleted,
		&j.IsApplied, &j.ScrapedAt, &j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// ListJobs returns non-deleted jobs for a user, filtered and sorted.
// The sort column is mapped through a fixed allowlist before reaching SQL.
func (s *JobService) ListJobs(ctx context.Context, userID string, f *job.Filters) (*job.ListResponse, error) {
	where := []string{"user_id = $1", "is_deleted = FALSE"}
	args := []interface{}{userID}
	argCount := 2

	if f.Search != "" {
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR company ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+f.Search+"%")
		argCount++
	}
	if f.QueryID != nil {
		where = append(where, fmt.Sprintf("query_id = $%d", argCount))
		args = append(args, *f.QueryID)
		argCount++
	}

	sortCol, ok := jobSortColumns[f.SortBy]
	if !ok {
		sortCol = "posted"
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}

	limit := f.Limit
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM jobs WHERE %s`, whereClause), args...,
	).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM jobs
		WHERE %s
		ORDER BY %s %s NULLS LAST
		LIMIT $%d OFFSET $%d
	`, jobColumns, whereClause, sortCol, order, argCount, argCount+1)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*job.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return &job.ListResponse{Jobs: jobs, Total: total}, nil
}

// SetDeleted soft-deletes or restores a job.
func (s *JobService) SetDeleted(ctx context.Context, userID string, jobID int64, deleted bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE jobs SET is_deleted = $3 WHERE id = $1 AND user_id = $2
	`, jobID, userID, deleted)
	if err != nil {
		return fmt.Errorf("failed to update job deleted flag: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job not found")
	}
	return nil
}

func (s *JobService) SetApplied(ctx context.Context, userID string, jobID int64, applied bool) (*job.Job, error) {
	j, err := scanJob(s.db.QueryRow(ctx, `
		UPDATE jobs SET is_applied = $3 WHERE id = $1 AND user_id = $2
		RETURNING `+jobColumns, jobID, userID, applied))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("job not found")
		}
		return nil, fmt.Errorf("failed to update job applied flag: %w", err)
	}
	return j, nil
}

// GetDashboardStats aggregates the numbers shown on the dashboard header.
func (s *JobService) GetDashboardStats(ctx context.Context, userID string) (*job.DashboardStats, error) {
	stats := &job.DashboardStats{}

	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM queries WHERE user_id = $1 AND is_active),
			(SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND is_deleted = FALSE AND created_at >= CURRENT_DATE),
			(SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND is_deleted = FALSE)
	`, userID).Scan(&stats.ActiveQueries, &stats.JobsFoundToday, &stats.TotalJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate dashboard stats: %w", err)
	}

	var sent, failed int
	err = s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM notification_logs
		WHERE user_id = $1
	`, userID).Scan(&sent, &failed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notification stats: %w", err)
	}

	if sent+failed > 0 {
		stats.SuccessRate = float64(sent) / float64(sent+failed) * 100
	}
	return stats, nil
}
