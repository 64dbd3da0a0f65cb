package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"hireflow/internal/domain"
)

const userColumns = `id, email, name, COALESCE(picture, ''), verified_email, onboarding_completed, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Picture, &u.VerifiedEmail, &u.OnboardingCompleted, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return &u, err
}

// UpsertUser inserts a user or, on an email conflict, refreshes the profile
// fields while keeping the onboarding state.
func (db *DB) UpsertUser(ctx context.Context, u domain.User) (*domain.User, error) {
	return scanUser(db.Pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, picture, verified_email, onboarding_completed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			verified_email = EXCLUDED.verified_email,
			updated_at = now()
		RETURNING `+userColumns,
		u.ID, strings.ToLower(u.Email), u.Name, nullable(u.Picture), u.VerifiedEmail, u.OnboardingCompleted))
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (db *DB) SetOnboarding(ctx context.Context, email string, completed bool) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE users SET onboarding_completed = $2, updated_at = now() WHERE email = $1
	`, strings.ToLower(email), completed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (db *DB) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := db.Pool.QueryRow(ctx, `
		SELECT user_id, full_name, job_title, company, company_size, industry, phone, profile_completed
		FROM user_profiles WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.FullName, &p.JobTitle, &p.Company, &p.CompanySize, &p.Industry, &p.Phone, &p.ProfileCompleted)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) SaveProfile(ctx context.Context, p domain.UserProfile) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO user_profiles (user_id, full_name, job_title, company, company_size, industry, phone, profile_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			job_title = EXCLUDED.job_title,
			company = EXCLUDED.company,
			company_size = EXCLUDED.company_size,
			industry = EXCLUDED.industry,
			phone = EXCLUDED.phone,
			profile_completed = EXCLUDED.profile_completed,
			updated_at = now()
	`, p.UserID, p.FullName, p.JobTitle, p.Company, p.CompanySize, p.Industry, p.Phone, p.ProfileCompleted)
	return err
}
