package model

import "time"

// ClassifierWeights holds the dense parameters of the auxiliary line
// classifier. Persisted after every online update; Version increments
// monotonically.
type ClassifierWeights struct {
	UpdatedAt  time.Time
	W1         []float64 // hidden x input, row-major
	B1         []float64
	W2         []float64 // 1 x hidden
	B2         []float64
	InputSize  int
	HiddenSize int
	Version    int64
}
