package learn

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

// HiddenSize is the width of the single hidden layer.
const HiddenSize = 8

// defaultLearningRate is used for single-sample online updates.
const defaultLearningRate = 0.1

// network is a small fixed-size feed-forward model: tanh hidden layer,
// sigmoid output. Training is strictly online — one gradient step per
// accepted correction, never batch retraining.
type network struct {
	w1 []float64 // HiddenSize x FeatureCount, row-major
	b1 []float64
	w2 []float64 // 1 x HiddenSize
	b2 []float64
	lr float64
}

func newNetwork() *network {
	rng := rand.New(rand.NewSource(42)) // deterministic init
	n := &network{
		w1: make([]float64, HiddenSize*FeatureCount),
		b1: make([]float64, HiddenSize),
		w2: make([]float64, HiddenSize),
		b2: make([]float64, 1),
		lr: defaultLearningRate,
	}
	for i := range n.w1 {
		n.w1[i] = rng.Float64()*0.2 - 0.1
	}
	for i := range n.w2 {
		n.w2[i] = rng.Float64()*0.2 - 0.1
	}
	return n
}

// forward returns the output activation and the hidden activations.
func (n *network) forward(x []float64) (float64, []float64) {
	hidden := make([]float64, HiddenSize)
	for h := 0; h < HiddenSize; h++ {
		sum := n.b1[h]
		row := h * FeatureCount
		for i := 0; i < FeatureCount; i++ {
			sum += n.w1[row+i] * x[i]
		}
		hidden[h] = math.Tanh(sum)
	}

	out := n.b2[0]
	for h := 0; h < HiddenSize; h++ {
		out += n.w2[h] * hidden[h]
	}
	return sigmoid(out), hidden
}

// trainSample performs one gradient step on a single labeled sample and
// returns the pre-update prediction.
func (n *network) trainSample(x []float64, label float64) float64 {
	out, hidden := n.forward(x)

	// Output delta for sigmoid + cross-entropy.
	dOut := out - label

	// Hidden deltas through tanh.
	dHidden := make([]float64, HiddenSize)
	for h := 0; h < HiddenSize; h++ {
		dHidden[h] = dOut * n.w2[h] * (1 - hidden[h]*hidden[h])
	}

	for h := 0; h < HiddenSize; h++ {
		n.w2[h] -= n.lr * dOut * hidden[h]
	}
	n.b2[0] -= n.lr * dOut

	for h := 0; h < HiddenSize; h++ {
		row := h * FeatureCount
		for i := 0; i < FeatureCount; i++ {
			n.w1[row+i] -= n.lr * dHidden[h] * x[i]
		}
		n.b1[h] -= n.lr * dHidden[h]
	}

	return out
}

func (n *network) snapshot() *model.ClassifierWeights {
	return &model.ClassifierWeights{
		InputSize:  FeatureCount,
		HiddenSize: HiddenSize,
		W1:         append([]float64(nil), n.w1...),
		B1:         append([]float64(nil), n.b1...),
		W2:         append([]float64(nil), n.w2...),
		B2:         append([]float64(nil), n.b2...),
		UpdatedAt:  time.Now(),
	}
}

func networkFromWeights(w *model.ClassifierWeights) (*network, error) {
	if w.InputSize != FeatureCount || w.HiddenSize != HiddenSize {
		return nil, fmt.Errorf("incompatible weights: %dx%d, want %dx%d",
			w.InputSize, w.HiddenSize, FeatureCount, HiddenSize)
	}
	if len(w.W1) != HiddenSize*FeatureCount || len(w.B1) != HiddenSize ||
		len(w.W2) != HiddenSize || len(w.B2) != 1 {
		return nil, fmt.Errorf("malformed weight matrices")
	}
	return &network{
		w1: append([]float64(nil), w.W1...),
		b1: append([]float64(nil), w.B1...),
		w2: append([]float64(nil), w.W2...),
		b2: append([]float64(nil), w.B2...),
		lr: defaultLearningRate,
	}, nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
