package models

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type OLSOptions struct {
	FitIntercept bool
}

func NewDefaultOLSOptions() *OLSOptions {
	return &OLSOptions{
		FitIntercept: true,
	}
}

// Validate returns the default options when nil
func (o *OLSOptions) Validate() (*OLSOptions, error) {
	if o == nil {
		return NewDefaultOLSOptions(), nil
	}
	res := *o
	return &res, nil
}

// OLSRegression computes ordinary least squares using QR factorization
type OLSRegression struct {
	opt       *OLSOptions
	coef      []float64
	intercept float64
	stdDev    float64
	fitted    bool
}

func NewOLSRegression(opt *OLSOptions) (*OLSRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &OLSRegression{
		opt: opt,
	}, nil
}

// withIntercept prepends a column of ones
func withIntercept(x mat.Matrix) *mat.Dense {
	m, n := x.Dims()
	res := mat.NewDense(m, n+1, nil)
	for i := 0; i < m; i++ {
		res.Set(i, 0, 1.0)
		for j := 0; j < n; j++ {
			res.Set(i, j+1, x.At(i, j))
		}
	}
	return res
}

// Fit solves for the coefficients minimizing the squared error of x against y. x must have at
// least one column.
func (o *OLSRegression) Fit(x mat.Matrix, y []float64) error {
	if x == nil {
		return ErrNoObservations
	}
	m, _ := x.Dims()
	if m == 0 {
		return ErrNoObservations
	}
	if len(y) != m {
		return fmt.Errorf("design matrix has %d rows and target has %d, %w", m, len(y), ErrTargetLenMismatch)
	}

	design := x
	if o.opt.FitIntercept {
		design = withIntercept(x)
	}
	_, p := design.Dims()
	if m < p {
		return fmt.Errorf("%d observations for %d coefficients, %w", m, p, ErrUnderdetermined)
	}

	var qr mat.QR
	qr.Factorize(design)

	var c mat.VecDense
	if err := qr.SolveVecTo(&c, false, mat.NewVecDense(m, y)); err != nil {
		return fmt.Errorf("unable to solve least squares, %w", err)
	}
	coef := make([]float64, p)
	for i := range coef {
		coef[i] = c.AtVec(i)
	}

	if o.opt.FitIntercept {
		o.intercept = coef[0]
		o.coef = coef[1:]
	} else {
		o.intercept = 0
		o.coef = coef
	}
	o.fitted = true

	predicted, err := o.Predict(x)
	if err != nil {
		return err
	}
	o.stdDev = 0
	if dof := m - p; dof > 0 {
		residual := make([]float64, m)
		floats.SubTo(residual, y, predicted)
		o.stdDev = math.Sqrt(floats.Dot(residual, residual) / float64(dof))
	}
	return nil
}

func (o *OLSRegression) Predict(x mat.Matrix) ([]float64, error) {
	if !o.fitted {
		return nil, ErrNotFitted
	}
	if x == nil {
		return nil, ErrNoObservations
	}
	m, n := x.Dims()
	if n != len(o.coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, len(o.coef), ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	row := make([]float64, n)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		res[i] = o.intercept + floats.Dot(row, o.coef)
	}
	return res, nil
}

// Score returns the coefficient of determination of the fit on x and y
func (o *OLSRegression) Score(x mat.Matrix, y []float64) (float64, error) {
	res, err := o.Predict(x)
	if err != nil {
		return 0.0, err
	}
	if len(res) != len(y) {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d, %w", len(res), len(y), ErrTargetLenMismatch)
	}
	return stat.RSquaredFrom(res, y, nil), nil
}

func (o *OLSRegression) Intercept() float64 {
	return o.intercept
}

func (o *OLSRegression) Coef() []float64 {
	c := make([]float64, len(o.coef))
	copy(c, o.coef)
	return c
}

// ResidualStdDev is the standard deviation of the fit residuals corrected for the number of
// coefficients. It is 0 for an exact fit.
func (o *OLSRegression) ResidualStdDev() float64 {
	return o.stdDev
}
