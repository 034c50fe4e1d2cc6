package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edt-planner/edt-api/internal/models"
)

// ClassGroupRepository manages persistence for class groups.
type ClassGroupRepository struct {
	db *sqlx.DB
}

// NewClassGroupRepository constructs a ClassGroupRepository.
func NewClassGroupRepository(db *sqlx.DB) *ClassGroupRepository {
	return &ClassGroupRepository{db: db}
}

// List returns every class group ordered by name.
func (r *ClassGroupRepository) List(ctx context.Context) ([]models.ClassGroup, error) {
	const query = `SELECT id, name, size, created_at, updated_at FROM class_groups ORDER BY name ASC`
	var groups []models.ClassGroup
	if err := r.db.SelectContext(ctx, &groups, query); err != nil {
		return nil, fmt.Errorf("list class groups: %w", err)
	}
	return groups, nil
}

// ListUnavailabilities returns every date-range unavailability.
func (r *ClassGroupRepository) ListUnavailabilities(ctx context.Context) ([]models.ClassGroupUnavailability, error) {
	const query = `SELECT id, class_group_id, start_date, end_date, reason
        FROM class_group_unavailabilities ORDER BY class_group_id ASC, start_date ASC`
	var ranges []models.ClassGroupUnavailability
	if err := r.db.SelectContext(ctx, &ranges, query); err != nil {
		return nil, fmt.Errorf("list class group unavailabilities: %w", err)
	}
	return ranges, nil
}
