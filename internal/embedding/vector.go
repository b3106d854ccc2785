package embedding

import "math"

// Dot is the cosine similarity of two unit vectors.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Normalize returns a unit-length copy of v.
func Normalize(v []float64) ([]float64, error) {
	n := Norm(v)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, ErrDegenerateVector
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x / n
	}
	return out, nil
}

// Mean averages equally sized vectors component-wise.
func Mean(vs [][]float64) ([]float64, bool) {
	if len(vs) == 0 || len(vs[0]) == 0 {
		return nil, false
	}
	dim := len(vs[0])
	sum := make([]float64, dim)
	for _, v := range vs {
		if len(v) != dim {
			return nil, false
		}
		for i := 0; i < dim; i++ {
			sum[i] += v[i]
		}
	}
	inv := 1.0 / float64(len(vs))
	for i := range sum {
		sum[i] *= inv
	}
	return sum, true
}
