package services

import (
	"context"
	"fmt"
	"strings"

	"jobRadarAPI/internal/types/profile"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AdminService struct {
	db *pgxpool.Pool
}

func NewAdminService(db *pgxpool.Pool) *AdminService {
	return &AdminService{db: db}
}

// ListUsers returns a page of profiles with optional search (name/email) and
// account type filter, plus aggregate counts for the admin dashboard.
func (s *AdminService) ListUsers(ctx context.Context, page, limit int, search, accountType string) (*profile.AdminUserList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := []string{}
	args := []interface{}{}
	argCount := 1

	if search != "" {
		where = append(where, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+search+"%")
		argCount++
	}
	if accountType != "" {
		where = append(where, fmt.Sprintf("account_type = $%d", argCount))
		args = append(args, accountType)
		argCount++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM user_profiles %s`, whereClause)
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM user_profiles
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, profileColumns, whereClause, argCount, argCount+1)
	args = append(args, limit, offset)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	stats := profile.AdminStats{}
	statsQuery := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE account_type = 'admin'),
			COUNT(*) FILTER (WHERE account_type IN ('admin', 'privileged')),
			COUNT(*) FILTER (WHERE is_suspended)
		FROM user_profiles
	`
	if err := s.db.QueryRow(ctx, statsQuery).Scan(
		&stats.TotalUsers, &stats.AdminUsers, &stats.PrivilegedUsers, &stats.SuspendedUsers,
	); err != nil {
		return nil, fmt.Errorf("failed to aggregate user stats: %w", err)
	}

	totalPages := (total + limit - 1) / limit
	return &profile.AdminUserList{
		Users:      users,
		Stats:      stats,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// UpdateUser applies an admin edit. Only account_type and full_name are
// mutable here; billing-owned fields are rejected in the handler before this
// point.
func (s *AdminService) UpdateUser(ctx context.Context, userID string, accountType, fullName *string) (*profile.Profile, error) {
	updates := []string{}
	args := []interface{}{userID}
	argCount := 2

	if accountType != nil {
		updates = append(updates, fmt.Sprintf("account_type = $%d", argCount))
		args = append(args, *accountType)
		argCount++
	}
	if fullName != nil {
		updates = append(updates, fmt.Sprintf("full_name = $%d", argCount))
		args = append(args, *fullName)
		argCount++
	}

	if len(updates) == 0 {
		return s.getUser(ctx, userID)
	}

	query := fmt.Sprintf(`
		UPDATE user_profiles
		SET %s, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns, strings.Join(updates, ", "))

	p, err := scanProfile(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return p, nil
}

func (s *AdminService) getUser(ctx context.Context, userID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return p, nil
}

func (s *AdminService) GetUserAccountType(ctx context.Context, userID string) (profile.AccountType, error) {
	var at profile.AccountType
	err := s.db.QueryRow(ctx, `SELECT account_type FROM user_profiles WHERE id = $1`, userID).Scan(&at)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", fmt.Errorf("user not found")
		}
		return "", fmt.Errorf("failed to get account type: %w", err)
	}
	return at, nil
}

// DeleteUser removes a user and every row hanging off it.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := deleteUserRows(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}
