package learn

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lossAndGrads runs one forward/backward pass and copies out the gradients.
func lossAndGrads(n *Network, xs [][]float64, ys []Class) (float64, [][]float64) {
	ws := n.acquire(len(xs))
	defer n.release(ws)

	x, y, h, p, dz, dh := ws.views(len(xs))
	for i := range xs {
		copy(x.RawRowView(i), xs[i])
		yr := y.RawRowView(i)
		for j := range yr {
			yr[j] = 0
		}
		yr[ys[i]] = 1
	}
	n.forward(x, h, p)
	loss := n.backward(ws, x, y, h, p, dz, dh)

	var grads [][]float64
	for _, g := range ws.grads() {
		grads = append(grads, append([]float64(nil), g...))
	}
	return loss, grads
}

func TestNetwork_GradientCheck(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := NewNetwork(5, 6, NumClasses, 0.02, rng)
	// Non-zero biases so the check covers them too.
	for i := range n.b1.RawVector().Data {
		n.b1.RawVector().Data[i] = 0.1
	}

	xs := make([][]float64, 4)
	for i := range xs {
		xs[i] = make([]float64, 5)
		for j := range xs[i] {
			xs[i][j] = rng.Float64()
		}
	}
	ys := []Class{Unripe, Ripe, Overripe, Ripe}

	_, grads := lossAndGrads(n, xs, ys)

	const eps = 1e-6
	for k, p := range n.params() {
		for i := range p {
			orig := p[i]
			p[i] = orig + eps
			up, _ := lossAndGrads(n, xs, ys)
			p[i] = orig - eps
			down, _ := lossAndGrads(n, xs, ys)
			p[i] = orig

			numeric := (up - down) / (2 * eps)
			assert.InDelta(t, numeric, grads[k][i], 1e-5, "param %d[%d]", k, i)
		}
	}
}

func TestNetwork_PredictIsDistribution(t *testing.T) {
	n := NewNetwork(4, 8, NumClasses, 0.02, rand.New(rand.NewSource(1)))

	probs, err := n.Predict([]float64{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.Len(t, probs, NumClasses)

	sum := 0.0
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-12)
}

func TestNetwork_PredictWrongLength(t *testing.T) {
	n := NewNetwork(4, 8, NumClasses, 0.02, rand.New(rand.NewSource(1)))
	_, err := n.Predict([]float64{1})
	assert.ErrorIs(t, err, ErrFeatureLength)
}

func TestNetwork_FitValidates(t *testing.T) {
	n := NewNetwork(2, 4, NumClasses, 0.02, rand.New(rand.NewSource(1)))
	rng := rand.New(rand.NewSource(2))

	_, err := n.Fit(context.Background(), nil, nil, FitOptions{Epochs: 1}, rng)
	assert.Error(t, err)

	_, err = n.Fit(context.Background(), [][]float64{{1, 2, 3}}, []Class{Ripe}, FitOptions{Epochs: 1}, rng)
	assert.ErrorIs(t, err, ErrFeatureLength)

	_, err = n.Fit(context.Background(), [][]float64{{1, 2}}, []Class{Class(5)}, FitOptions{Epochs: 1}, rng)
	assert.ErrorIs(t, err, ErrUnknownClass)
}

func TestNetwork_FitReducesLoss(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := NewNetwork(6, 24, NumClasses, 0.02, rng)

	xs := [][]float64{
		{1, 0, 0, 0, 0, 0}, {0.9, 0.1, 0, 0, 0, 0},
		{0, 0, 1, 0, 0, 0}, {0, 0, 0.9, 0.1, 0, 0},
		{0, 0, 0, 0, 1, 0}, {0, 0, 0, 0, 0.9, 0.1},
	}
	ys := []Class{Unripe, Unripe, Ripe, Ripe, Overripe, Overripe}

	first, err := n.Fit(context.Background(), xs, ys, FitOptions{Epochs: 1, BatchSize: 8}, rng)
	require.NoError(t, err)
	last, err := n.Fit(context.Background(), xs, ys, FitOptions{Epochs: 60, BatchSize: 8, Shuffle: true}, rng)
	require.NoError(t, err)

	assert.Less(t, last, first)
	assert.False(t, math.IsNaN(last))
}

func TestNetwork_FitCancelled(t *testing.T) {
	n := NewNetwork(1, 2, NumClasses, 0.02, rand.New(rand.NewSource(1)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := n.Fit(ctx, [][]float64{{1}}, []Class{Ripe}, FitOptions{Epochs: 3}, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdam_FirstStepMovesByLearningRate(t *testing.T) {
	p := [][]float64{{1, -1}}
	a := newAdam(0.02, p)

	a.step(p, [][]float64{{0.5, -3}})

	assert.InDelta(t, 0.98, p[0][0], 1e-6)
	assert.InDelta(t, -0.98, p[0][1], 1e-6)
}

func TestSoftmax_Stable(t *testing.T) {
	row := []float64{1000, 1000, 1000}
	softmax(row)
	for _, v := range row {
		assert.InDelta(t, 1.0/3, v, 1e-12)
	}
}
