package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
)

// SaveWeights persists a new version of the classifier weights. Each online
// update produces a fresh row; version numbers grow monotonically.
func (s *SQLiteStore) SaveWeights(ctx context.Context, weights *model.ClassifierWeights) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if weights == nil {
		return fmt.Errorf("weights cannot be nil")
	}
	if weights.InputSize <= 0 || weights.HiddenSize <= 0 {
		return fmt.Errorf("weights dimensions must be positive")
	}

	unlock := s.lockKey("weights")
	defer unlock()

	if weights.UpdatedAt.IsZero() {
		weights.UpdatedAt = time.Now()
	}

	encode := func(v []float64) (string, error) {
		raw, err := json.Marshal(v)
		return string(raw), err
	}

	w1, err := encode(weights.W1)
	if err != nil {
		return fmt.Errorf("failed to encode w1: %w", err)
	}
	b1, err := encode(weights.B1)
	if err != nil {
		return fmt.Errorf("failed to encode b1: %w", err)
	}
	w2, err := encode(weights.W2)
	if err != nil {
		return fmt.Errorf("failed to encode w2: %w", err)
	}
	b2, err := encode(weights.B2)
	if err != nil {
		return fmt.Errorf("failed to encode b2: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO classifier_weights (input_size, hidden_size, w1, b1, w2, b2, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, weights.InputSize, weights.HiddenSize, w1, b1, w2, b2, weights.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save weights: %w", err)
	}

	version, err := res.LastInsertId()
	if err == nil {
		weights.Version = version
	}

	// Keep only the latest few versions around.
	_, err = s.db.ExecContext(ctx, `
		DELETE FROM classifier_weights
		WHERE version NOT IN (SELECT version FROM classifier_weights ORDER BY version DESC LIMIT 5)
	`)
	if err != nil {
		return fmt.Errorf("failed to trim weight versions: %w", err)
	}

	return nil
}

// LoadWeights returns the most recent classifier weights, or
// common.ErrNotFound if the classifier has never been trained.
func (s *SQLiteStore) LoadWeights(ctx context.Context) (*model.ClassifierWeights, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var w model.ClassifierWeights
	var w1, b1, w2, b2 string

	err := s.db.QueryRowContext(ctx, `
		SELECT version, input_size, hidden_size, w1, b1, w2, b2, updated_at
		FROM classifier_weights
		ORDER BY version DESC
		LIMIT 1
	`).Scan(&w.Version, &w.InputSize, &w.HiddenSize, &w1, &b1, &w2, &b2, &w.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load weights: %w", err)
	}

	decode := func(raw string, dst *[]float64) error {
		return json.Unmarshal([]byte(raw), dst)
	}
	if err := decode(w1, &w.W1); err != nil {
		return nil, fmt.Errorf("failed to decode w1: %w", err)
	}
	if err := decode(b1, &w.B1); err != nil {
		return nil, fmt.Errorf("failed to decode b1: %w", err)
	}
	if err := decode(w2, &w.W2); err != nil {
		return nil, fmt.Errorf("failed to decode w2: %w", err)
	}
	if err := decode(b2, &w.B2); err != nil {
		return nil, fmt.Errorf("failed to decode b2: %w", err)
	}

	return &w, nil
}
