package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"hireflow/internal/domain"
)

const campaignColumns = `id, COALESCE(user_id, ''), title, department, location, employment_type,
	experience_level, salary_range, job_description, requirements, skills, stages, openings,
	created_at, updated_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	var skills, stages []byte
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.Department, &c.Location, &c.EmploymentType,
		&c.ExperienceLevel, &c.SalaryRange, &c.Description, &c.Requirements, &skills, &stages,
		&c.Openings, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(skills, &c.Skills); err != nil {
		return nil, fmt.Errorf("campaign %s skills: %w", c.ID, err)
	}
	if err := json.Unmarshal(stages, &c.Stages); err != nil {
		return nil, fmt.Errorf("campaign %s stages: %w", c.ID, err)
	}
	return &c, nil
}

// loadCandidates returns the candidates of the given campaigns keyed by campaign id.
func loadCandidates(ctx context.Context, q querier, campaignIDs []string) (map[string][]domain.Candidate, error) {
	rows, err := q.Query(ctx, `
		SELECT campaign_id, id, name, email, phone, resume_url, stage, notes, thread_id,
		       communication_log, added_date, last_updated
		FROM candidates
		WHERE campaign_id = ANY($1)
		ORDER BY added_date, id
	`, campaignIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]domain.Candidate, len(campaignIDs))
	for rows.Next() {
		var campaignID string
		var cand domain.Candidate
		var log []byte
		if err := rows.Scan(&campaignID, &cand.ID, &cand.Name, &cand.Email, &cand.Phone, &cand.ResumeURL,
			&cand.CurrentStage, &cand.Notes, &cand.ThreadID, &log, &cand.AddedDate, &cand.LastUpdated); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(log, &cand.CommunicationLog); err != nil {
			return nil, fmt.Errorf("candidate %s communication log: %w", cand.ID, err)
		}
		out[campaignID] = append(out[campaignID], cand)
	}
	return out, rows.Err()
}

// finish validates an assembled campaign at the storage edge.
func (db *DB) finish(c *domain.Campaign) (*domain.Campaign, error) {
	if err := domain.Normalize(c); err != nil {
		return nil, fmt.Errorf("campaign %s: %w", c.ID, err)
	}
	if _, err := domain.CheckCandidateStages(c, db.policy); err != nil {
		return nil, fmt.Errorf("campaign %s: %w", c.ID, err)
	}
	return c, nil
}

func (db *DB) List(ctx context.Context, userID string) ([]domain.Campaign, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+campaignColumns+`
		FROM campaigns
		WHERE $1 = '' OR user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	var list []*domain.Campaign
	var ids []string
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		list = append(list, c)
		ids = append(ids, c.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cands, err := loadCandidates(ctx, db.Pool, ids)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Campaign, 0, len(list))
	for _, c := range list {
		c.Candidates = cands[c.ID]
		checked, err := db.finish(c)
		if err != nil {
			return nil, err
		}
		out = append(out, *checked)
	}
	return out, nil
}

func (db *DB) get(ctx context.Context, q querier, id string, lock bool) (*domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	c, err := scanCampaign(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cands, err := loadCandidates(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	c.Candidates = cands[id]
	return db.finish(c)
}

func (db *DB) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	return db.get(ctx, db.Pool, id, false)
}

func (db *DB) Save(ctx context.Context, c *domain.Campaign) (*domain.Campaign, error) {
	saved := c.Clone()
	saved.ID = "campaign-" + uuid.NewString()
	now := db.now().UTC()
	saved.CreatedAt = now
	saved.UpdatedAt = now
	if err := domain.Normalize(saved); err != nil {
		return nil, err
	}
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		return writeCampaign(ctx, tx, saved)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (db *DB) Update(ctx context.Context, id string, patch domain.CampaignPatch) (*domain.Campaign, error) {
	var updated *domain.Campaign
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		c, err := db.get(ctx, tx, id, true)
		if err != nil {
			return err
		}
		patch.Apply(c)
		c.UpdatedAt = db.now().UTC()
		if err := domain.Normalize(c); err != nil {
			return err
		}
		updated = c
		return writeCampaign(ctx, tx, c)
	})
	return updated, err
}

func (db *DB) Replace(ctx context.Context, c *domain.Campaign) error {
	if err := domain.Normalize(c); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM campaigns WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		c.UpdatedAt = db.now().UTC()
		return writeCampaign(ctx, tx, c)
	})
}

func (db *DB) Delete(ctx context.Context, id string) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// writeCampaign upserts the campaign row and its candidate rows, and removes
// candidate rows that are no longer part of the campaign.
func writeCampaign(ctx context.Context, tx pgx.Tx, c *domain.Campaign) error {
	skills, err := json.Marshal(c.Skills)
	if err != nil {
		return err
	}
	stages, err := json.Marshal(c.Stages)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO campaigns (id, user_id, title, department, location, employment_type, experience_level,
		                       salary_range, job_description, requirements, skills, stages, openings,
		                       created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			department = EXCLUDED.department,
			location = EXCLUDED.location,
			employment_type = EXCLUDED.employment_type,
			experience_level = EXCLUDED.experience_level,
			salary_range = EXCLUDED.salary_range,
			job_description = EXCLUDED.job_description,
			requirements = EXCLUDED.requirements,
			skills = EXCLUDED.skills,
			openings = EXCLUDED.openings,
			updated_at = EXCLUDED.updated_at
	`, c.ID, nullable(c.UserID), c.Title, c.Department, c.Location, c.EmploymentType, c.ExperienceLevel,
		c.SalaryRange, c.Description, c.Requirements, skills, stages, c.Openings, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("upsert campaign: %w", err)
	}

	ids := make([]string, 0, len(c.Candidates))
	batch := &pgx.Batch{}
	for _, cand := range c.Candidates {
		log, err := json.Marshal(cand.CommunicationLog)
		if err != nil {
			return err
		}
		ids = append(ids, cand.ID)
		batch.Queue(`
			INSERT INTO candidates (id, campaign_id, user_id, name, email, phone, resume_url, stage, notes,
			                        thread_id, communication_log, added_date, last_updated)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				email = EXCLUDED.email,
				phone = EXCLUDED.phone,
				resume_url = EXCLUDED.resume_url,
				stage = EXCLUDED.stage,
				notes = EXCLUDED.notes,
				communication_log = EXCLUDED.communication_log,
				last_updated = EXCLUDED.last_updated,
				updated_at = now()
		`, cand.ID, c.ID, nullable(c.UserID), cand.Name, cand.Email, cand.Phone, cand.ResumeURL,
			cand.CurrentStage, cand.Notes, cand.ThreadID, log, cand.AddedDate, cand.LastUpdated)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upsert candidates: %w", err)
		}
	}
	if _, err := tx.Exec(ctx, `DELETE FROM candidates WHERE campaign_id = $1 AND NOT (id = ANY($2))`, c.ID, ids); err != nil {
		return fmt.Errorf("prune candidates: %w", err)
	}
	return nil
}
