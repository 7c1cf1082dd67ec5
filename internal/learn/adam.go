package learn

import "math"

// adam is the Adam optimizer with bias correction. Moment estimates persist
// across Fit calls, so retraining continues from the previous state.
type adam struct {
	lr, beta1, beta2, eps float64

	t    int
	m, v [][]float64
}

func newAdam(lr float64, params [][]float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	return a
}

// step applies one update to params in place. grads must line up with params.
func (a *adam) step(params, grads [][]float64) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))

	for k, p := range params {
		g, m, v := grads[k], a.m[k], a.v[k]
		for i := range p {
			m[i] = a.beta1*m[i] + (1-a.beta1)*g[i]
			v[i] = a.beta2*v[i] + (1-a.beta2)*g[i]*g[i]
			p[i] -= a.lr * (m[i] / c1) / (math.Sqrt(v[i]/c2) + a.eps)
		}
	}
}
