package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var ErrTooFewObservations = errors.New("too few observations for polynomial degree")

// Model predicts a target from one explanatory series.
type Model interface {
	Predict(x []float64) ([]float64, error)
}

// Fitter trains a Model on paired observations.
type Fitter interface {
	Fit(x, y []float64) (Model, error)
}

// PolynomialFitter fits y = b0 + b1*x + ... + bD*x^D by ordinary least squares.
type PolynomialFitter struct {
	Degree int
}

// Polynomial is a fitted PolynomialFitter. The basis is built on x
// standardized with the training mean and deviation; it spans the same
// functions as raw powers of x but keeps the normal equations well
// conditioned for net load in the tens of thousands of MW.
type Polynomial struct {
	Degree int       `json:"degree"`
	Mean   float64   `json:"mean"`
	Scale  float64   `json:"scale"`
	Coef   []float64 `json:"coefficients"`
}

func (f PolynomialFitter) Fit(x, y []float64) (Model, error) {
	if f.Degree < 1 {
		return nil, fmt.Errorf("%w: polynomial degree must be at least 1, got %d", ErrInvalidArgument, f.Degree)
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d inputs but %d targets", ErrInvalidArgument, len(x), len(y))
	}
	n := len(x)
	if n == 0 {
		return nil, ErrNoTrainingData
	}
	if !allFinite(x) || !allFinite(y) {
		return nil, fmt.Errorf("%w: non-finite observation", ErrInvalidArgument)
	}

	mean, std := stat.MeanStdDev(x, nil)
	p := &Polynomial{Degree: f.Degree, Mean: mean, Scale: std}
	if std == 0 || math.IsNaN(std) {
		// a single distinct input only identifies the intercept
		p.Scale = 0
		p.Coef = make([]float64, f.Degree+1)
		p.Coef[0] = stat.Mean(y, nil)
		return p, nil
	}
	if n < f.Degree+1 {
		return nil, fmt.Errorf("%w: %d observations, degree %d", ErrTooFewObservations, n, f.Degree)
	}

	design := mat.NewDense(n, f.Degree+1, p.basis(x))
	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		return nil, fmt.Errorf("least squares: %w", err)
	}
	p.Coef = make([]float64, f.Degree+1)
	for i := range p.Coef {
		p.Coef[i] = beta.AtVec(i)
	}
	return p, nil
}

// basis returns the row-major design matrix [1, z, z^2, ..., z^D].
func (p *Polynomial) basis(x []float64) []float64 {
	cols := p.Degree + 1
	out := make([]float64, len(x)*cols)
	for i, v := range x {
		z := 0.0
		if p.Scale != 0 {
			z = (v - p.Mean) / p.Scale
		}
		pow := 1.0
		for d := 0; d < cols; d++ {
			out[i*cols+d] = pow
			pow *= z
		}
	}
	return out
}

func (p *Polynomial) Predict(x []float64) ([]float64, error) {
	if !allFinite(x) {
		return nil, fmt.Errorf("%w: non-finite input", ErrInvalidArgument)
	}
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out, nil
	}
	cols := p.Degree + 1
	b := p.basis(x)
	for i := range x {
		out[i] = floats.Dot(b[i*cols:(i+1)*cols], p.Coef)
	}
	return out, nil
}

func allFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
