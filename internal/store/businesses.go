package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/switchboard/internal/domain"
)

// SaveBusiness inserts or replaces a business and its persona.
func (db *DB) SaveBusiness(ctx context.Context, b domain.Business) error {
	profile, err := json.Marshal(b.Profile)
	if err != nil {
		return fmt.Errorf("encoding profile: %w", err)
	}
	_, err = db.sql.ExecContext(ctx,
		`INSERT INTO businesses (id, name, sales_number, support_number, human_number, profile, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   sales_number = excluded.sales_number,
		   support_number = excluded.support_number,
		   human_number = excluded.human_number,
		   profile = excluded.profile,
		   updated_at = excluded.updated_at`,
		b.ID, b.Name, b.SalesNumber, b.SupportNumber, b.HumanNumber, string(profile), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("saving business %s: %w", b.ID, err)
	}
	return nil
}

// Business loads a business by id, or ErrNotFound.
func (db *DB) Business(ctx context.Context, id string) (*domain.Business, error) {
	var (
		b       domain.Business
		profile string
	)
	err := db.sql.QueryRowContext(ctx,
		`SELECT id, name, sales_number, support_number, human_number, profile FROM businesses WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.SalesNumber, &b.SupportNumber, &b.HumanNumber, &profile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("business %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading business %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(profile), &b.Profile); err != nil {
		return nil, fmt.Errorf("decoding profile for %s: %w", id, err)
	}
	return &b, nil
}
