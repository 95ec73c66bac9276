package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/service"
)

// LineClassifier is the auxiliary pre-filter: a small online-trained model
// that scores how likely a raw line is to be a transaction before the
// heavier pattern search runs. It satisfies extract.LinePrefilter.
type LineClassifier struct {
	store service.LearningStore
	net   *network
	mu    sync.RWMutex
}

// NewLineClassifier restores persisted weights when present, otherwise
// starts from a fresh deterministic initialization.
func NewLineClassifier(ctx context.Context, store service.LearningStore) (*LineClassifier, error) {
	c := &LineClassifier{store: store}

	weights, err := store.LoadWeights(ctx)
	switch {
	case errors.Is(err, common.ErrNotFound):
		c.net = newNetwork()
	case err != nil:
		return nil, fmt.Errorf("failed to load classifier weights: %w", err)
	default:
		net, err := networkFromWeights(weights)
		if err != nil {
			slog.Warn("stored weights incompatible, reinitializing", "error", err)
			net = newNetwork()
		}
		c.net = net
	}

	return c, nil
}

// Predict scores one raw line in [0,1].
func (c *LineClassifier) Predict(line string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out, _ := c.net.forward(Features(line))
	return out
}

// Train performs a single online gradient step on one labeled line and
// persists the updated weights. This is the only way the model ever learns;
// there is no batch retraining.
func (c *LineClassifier) Train(ctx context.Context, line string, isTransaction bool) error {
	label := 0.0
	if isTransaction {
		label = 1.0
	}

	c.mu.Lock()
	before := c.net.trainSample(Features(line), label)
	weights := c.net.snapshot()
	c.mu.Unlock()

	if err := c.store.SaveWeights(ctx, weights); err != nil {
		return fmt.Errorf("failed to persist weights: %w", err)
	}

	slog.Debug("online training step",
		"label", label,
		"prediction_before", before,
		"weights_version", weights.Version)
	return nil
}
