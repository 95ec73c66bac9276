package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkForwardBounded(t *testing.T) {
	n := newNetwork()

	for _, line := range []string{"", "05.09.2025 LIDL -125,40", "Sold precedent"} {
		out, hidden := n.forward(Features(line))
		assert.GreaterOrEqual(t, out, 0.0)
		assert.LessOrEqual(t, out, 1.0)
		assert.Len(t, hidden, HiddenSize)
	}
}

func TestNetworkDeterministicInit(t *testing.T) {
	a := newNetwork()
	b := newNetwork()
	assert.Equal(t, a.w1, b.w1)
	assert.Equal(t, a.w2, b.w2)
}

func TestTrainSampleMovesTowardLabel(t *testing.T) {
	n := newNetwork()
	x := Features("05.09.2025 Plata POS LIDL -125,40 RON")

	before, _ := n.forward(x)
	for i := 0; i < 50; i++ {
		n.trainSample(x, 1.0)
	}
	after, _ := n.forward(x)

	assert.Greater(t, after, before)

	for i := 0; i < 100; i++ {
		n.trainSample(x, 0.0)
	}
	down, _ := n.forward(x)
	assert.Less(t, down, after)
}

func TestTrainSampleReturnsPreUpdatePrediction(t *testing.T) {
	n := newNetwork()
	x := Features("05.09.2025 LIDL -10,00")

	expected, _ := n.forward(x)
	got := n.trainSample(x, 1.0)
	assert.Equal(t, expected, got)
}

func TestSnapshotRoundTrip(t *testing.T) {
	n := newNetwork()
	x := Features("05.09.2025 LIDL -10,00")
	n.trainSample(x, 1.0)

	restored, err := networkFromWeights(n.snapshot())
	require.NoError(t, err)

	want, _ := n.forward(x)
	got, _ := restored.forward(x)
	assert.Equal(t, want, got)
}

func TestNetworkFromWeightsRejectsMismatch(t *testing.T) {
	w := newNetwork().snapshot()
	w.HiddenSize = 4
	_, err := networkFromWeights(w)
	assert.Error(t, err)

	w = newNetwork().snapshot()
	w.W1 = w.W1[:10]
	_, err = networkFromWeights(w)
	assert.Error(t, err)
}
