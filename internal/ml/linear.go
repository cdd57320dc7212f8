package ml

import (
	"errors"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// rcond is the relative singular value cutoff for the least-squares rank.
const rcond = 1e-10

// LinearRegression is ordinary least squares with an intercept.
type LinearRegression struct {
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

func (l *LinearRegression) Kind() string    { return kindLinearRegression }
func (l *LinearRegression) InputWidth() int { return len(l.Coef) }

// FitLinearRegression centers x and y and takes the minimum-norm least-squares
// solution, so constant or collinear columns do not make the fit fail.
func FitLinearRegression(x [][]float64, y []float64) (*LinearRegression, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("linear regression: samples and targets must be non-empty and aligned")
	}
	n, p := len(x), len(x[0])
	yMean := stat.Mean(y, nil)
	if p == 0 {
		return &LinearRegression{Coef: []float64{}, Intercept: yMean}, nil
	}

	xMean := make([]float64, p)
	for _, row := range x {
		for j, v := range row {
			xMean[j] += v
		}
	}
	for j := range xMean {
		xMean[j] /= float64(n)
	}

	a := mat.NewDense(n, p, nil)
	b := mat.NewVecDense(n, nil)
	for i, row := range x {
		for j, v := range row {
			a.Set(i, j, v-xMean[j])
		}
		b.SetVec(i, y[i]-yMean)
	}

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("linear regression: SVD factorization failed")
	}
	coef := mat.NewVecDense(p, nil)
	if rank := svd.Rank(rcond); rank > 0 {
		svd.SolveVecTo(coef, b, rank)
	}

	out := &LinearRegression{Coef: make([]float64, p), Intercept: yMean}
	for j := 0; j < p; j++ {
		out.Coef[j] = coef.AtVec(j)
		out.Intercept -= out.Coef[j] * xMean[j]
	}
	return out, nil
}

func (l *LinearRegression) Predict(x []float64) float64 {
	v := l.Intercept
	for j, c := range l.Coef {
		v += c * x[j]
	}
	return v
}
