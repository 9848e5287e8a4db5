package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/onboardhq/apiserver/types"
)

// ProgressRepository handles persistence for progress records. The section
// set is stored as a JSONB document; the derived counters are stored
// alongside it so the admin report never needs to recompute.
type ProgressRepository struct {
	db *sql.DB
}

func NewProgressRepository(db *sql.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID int) (types.ProgressRecord, error) {
	const query = `
		SELECT user_id, sections, current_section, completed_sections, last_updated
		FROM progress
		WHERE user_id = $1`

	var (
		record      types.ProgressRecord
		rawSections []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&record.UserID,
		&rawSections,
		&record.CurrentSection,
		&record.CompletedSections,
		&record.LastUpdated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ProgressRecord{}, ErrNotFound
		}
		return types.ProgressRecord{}, err
	}
	if err := json.Unmarshal(rawSections, &record.Sections); err != nil {
		return types.ProgressRecord{}, err
	}
	if record.Sections == nil {
		record.Sections = []types.SectionRecord{}
	}
	return record, nil
}

// Upsert writes the full record, inserting on first touch. The single
// statement keeps the save side of the read-modify-write atomic.
func (r *ProgressRepository) Upsert(ctx context.Context, record types.ProgressRecord) (types.ProgressRecord, error) {
	rawSections, err := json.Marshal(record.Sections)
	if err != nil {
		return types.ProgressRecord{}, err
	}

	const query = `
		INSERT INTO progress (user_id, sections, current_section, completed_sections, last_updated)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET sections = EXCLUDED.sections,
			current_section = EXCLUDED.current_section,
			completed_sections = EXCLUDED.completed_sections,
			last_updated = EXCLUDED.last_updated`
	if _, err := r.db.ExecContext(
		ctx,
		query,
		record.UserID,
		rawSections,
		record.CurrentSection,
		record.CompletedSections,
		record.LastUpdated,
	); err != nil {
		return types.ProgressRecord{}, err
	}
	return record, nil
}

func (r *ProgressRepository) List(ctx context.Context) ([]types.ProgressRecord, error) {
	const query = `
		SELECT user_id, sections, current_section, completed_sections, last_updated
		FROM progress
		ORDER BY last_updated DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []types.ProgressRecord{}
	for rows.Next() {
		var (
			record      types.ProgressRecord
			rawSections []byte
		)
		if err := rows.Scan(
			&record.UserID,
			&rawSections,
			&record.CurrentSection,
			&record.CompletedSections,
			&record.LastUpdated,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawSections, &record.Sections); err != nil {
			return nil, err
		}
		if record.Sections == nil {
			record.Sections = []types.SectionRecord{}
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
