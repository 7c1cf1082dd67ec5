package learn

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// probEpsilon clips probabilities inside the cross-entropy log.
const probEpsilon = 1e-7

// Network is a dense ReLU hidden layer followed by a dense softmax output
// layer. It is not safe for concurrent use.
type Network struct {
	inputs, hidden, outputs int

	w1 *mat.Dense // inputs × hidden
	b1 *mat.VecDense
	w2 *mat.Dense // hidden × outputs
	b2 *mat.VecDense

	opt *adam

	// Per-batch scratch matrices, handed out by acquire and returned by
	// release on every exit path.
	scratch sync.Pool
}

// FitOptions controls a training run.
type FitOptions struct {
	Epochs    int
	BatchSize int
	Shuffle   bool
}

// NewNetwork creates a network with Glorot-uniform weights and zero biases.
func NewNetwork(inputs, hidden, outputs int, learningRate float64, rng *rand.Rand) *Network {
	n := &Network{
		inputs:  inputs,
		hidden:  hidden,
		outputs: outputs,
		w1:      mat.NewDense(inputs, hidden, glorot(inputs, hidden, rng)),
		b1:      mat.NewVecDense(hidden, nil),
		w2:      mat.NewDense(hidden, outputs, glorot(hidden, outputs, rng)),
		b2:      mat.NewVecDense(outputs, nil),
	}
	n.opt = newAdam(learningRate, n.params())
	return n
}

// Inputs returns the expected feature length.
func (n *Network) Inputs() int { return n.inputs }

func glorot(fanIn, fanOut int, rng *rand.Rand) []float64 {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))
	w := make([]float64, fanIn*fanOut)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * limit
	}
	return w
}

func (n *Network) params() [][]float64 {
	return [][]float64{
		n.w1.RawMatrix().Data,
		n.b1.RawVector().Data,
		n.w2.RawMatrix().Data,
		n.b2.RawVector().Data,
	}
}

type workspace struct {
	rows int

	x, y, h, p, dz, dh *mat.Dense
	gw1, gw2           *mat.Dense
	gb1, gb2           []float64
}

func (ws *workspace) grads() [][]float64 {
	return [][]float64{ws.gw1.RawMatrix().Data, ws.gb1, ws.gw2.RawMatrix().Data, ws.gb2}
}

// views returns the first r rows of each batch matrix.
func (ws *workspace) views(r int) (x, y, h, p, dz, dh *mat.Dense) {
	view := func(m *mat.Dense) *mat.Dense {
		_, c := m.Dims()
		return m.Slice(0, r, 0, c).(*mat.Dense)
	}
	return view(ws.x), view(ws.y), view(ws.h), view(ws.p), view(ws.dz), view(ws.dh)
}

func (n *Network) acquire(rows int) *workspace {
	if ws, ok := n.scratch.Get().(*workspace); ok && ws.rows >= rows {
		return ws
	}
	return &workspace{
		rows: rows,
		x:    mat.NewDense(rows, n.inputs, nil),
		y:    mat.NewDense(rows, n.outputs, nil),
		h:    mat.NewDense(rows, n.hidden, nil),
		p:    mat.NewDense(rows, n.outputs, nil),
		dz:   mat.NewDense(rows, n.outputs, nil),
		dh:   mat.NewDense(rows, n.hidden, nil),
		gw1:  mat.NewDense(n.inputs, n.hidden, nil),
		gw2:  mat.NewDense(n.hidden, n.outputs, nil),
		gb1:  make([]float64, n.hidden),
		gb2:  make([]float64, n.outputs),
	}
}

func (n *Network) release(ws *workspace) {
	n.scratch.Put(ws)
}

// forward computes h = relu(x·W1 + b1) and p = softmax(h·W2 + b2) row-wise.
func (n *Network) forward(x, h, p *mat.Dense) {
	r, _ := x.Dims()
	b1 := n.b1.RawVector().Data
	b2 := n.b2.RawVector().Data

	h.Mul(x, n.w1)
	for i := 0; i < r; i++ {
		row := h.RawRowView(i)
		floats.Add(row, b1)
		for j, v := range row {
			if v < 0 {
				row[j] = 0
			}
		}
	}

	p.Mul(h, n.w2)
	for i := 0; i < r; i++ {
		row := p.RawRowView(i)
		floats.Add(row, b2)
		softmax(row)
	}
}

// backward fills the workspace gradients for the mean cross-entropy over the
// batch and returns that loss.
func (n *Network) backward(ws *workspace, x, y, h, p, dz, dh *mat.Dense) float64 {
	r, _ := x.Dims()
	inv := 1 / float64(r)

	loss := 0.0
	for i := 0; i < r; i++ {
		pr, yr, dr := p.RawRowView(i), y.RawRowView(i), dz.RawRowView(i)
		for j := range pr {
			if yr[j] > 0 {
				loss -= yr[j] * math.Log(math.Min(math.Max(pr[j], probEpsilon), 1-probEpsilon))
			}
			dr[j] = (pr[j] - yr[j]) * inv
		}
	}

	ws.gw2.Mul(h.T(), dz)
	colSums(ws.gb2, dz)

	dh.Mul(dz, n.w2.T())
	for i := 0; i < r; i++ {
		hr, dr := h.RawRowView(i), dh.RawRowView(i)
		for j := range dr {
			if hr[j] <= 0 {
				dr[j] = 0
			}
		}
	}

	ws.gw1.Mul(x.T(), dh)
	colSums(ws.gb1, dh)

	return loss * inv
}

// Fit trains on xs/ys for opts.Epochs passes of mini-batches and returns the
// mean loss of the last epoch. ctx is checked between epochs.
func (n *Network) Fit(ctx context.Context, xs [][]float64, ys []Class, opts FitOptions, rng *rand.Rand) (float64, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0, fmt.Errorf("fit: %d inputs, %d labels", len(xs), len(ys))
	}
	for i, x := range xs {
		if len(x) != n.inputs {
			return 0, fmt.Errorf("%w: sample %d has %d features, network expects %d", ErrFeatureLength, i, len(x), n.inputs)
		}
		if c := ys[i]; int(c) < 0 || int(c) >= n.outputs {
			return 0, fmt.Errorf("%w: sample %d has class %d", ErrUnknownClass, i, int(c))
		}
	}

	batch := opts.BatchSize
	if batch <= 0 || batch > len(xs) {
		batch = len(xs)
	}

	ws := n.acquire(batch)
	defer n.release(ws)

	order := make([]int, len(xs))
	for i := range order {
		order[i] = i
	}

	var loss float64
	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return loss, err
		}
		if opts.Shuffle {
			rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}

		total := 0.0
		for start := 0; start < len(order); start += batch {
			end := min(start+batch, len(order))
			x, y, h, p, dz, dh := ws.views(end - start)

			for i, idx := range order[start:end] {
				copy(x.RawRowView(i), xs[idx])
				yr := y.RawRowView(i)
				for j := range yr {
					yr[j] = 0
				}
				yr[ys[idx]] = 1
			}

			n.forward(x, h, p)
			total += n.backward(ws, x, y, h, p, dz, dh) * float64(end-start)
			n.opt.step(n.params(), ws.grads())
		}
		loss = total / float64(len(xs))
	}

	return loss, nil
}

// Predict returns the class probabilities for one feature vector.
func (n *Network) Predict(features []float64) ([]float64, error) {
	if len(features) != n.inputs {
		return nil, fmt.Errorf("%w: got %d, network expects %d", ErrFeatureLength, len(features), n.inputs)
	}

	ws := n.acquire(1)
	defer n.release(ws)

	x, _, h, p, _, _ := ws.views(1)
	copy(x.RawRowView(0), features)
	n.forward(x, h, p)

	return append([]float64(nil), p.RawRowView(0)...), nil
}

func softmax(row []float64) {
	maxV := floats.Max(row)
	sum := 0.0
	for i, v := range row {
		e := math.Exp(v - maxV)
		row[i] = e
		sum += e
	}
	floats.Scale(1/sum, row)
}

func colSums(dst []float64, m *mat.Dense) {
	for i := range dst {
		dst[i] = 0
	}
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		floats.Add(dst, m.RawRowView(i))
	}
}
