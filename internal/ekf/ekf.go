// Package ekf implements a discrete time Extended Kalman Filter.
//
// The filter tracks N state variables from M observations. Callers linearise
// the observation model themselves and pass the Jacobian H together with the
// predicted observations hx to Update. Observations that are missing in a
// cycle are expressed as all-zero rows of H: such rows produce zero gain and
// therefore leave the state they would map to untouched.
//
// Example:
//
//	f, _ := ekf.New(2, 2, ekf.WithProcessNoise(1e-3))
//	h := mat.NewDense(2, 2, nil)
//	h.Set(0, 0, 1) // only the first observation is fresh
//	f.Predict()
//	if err := f.Update(z, h, hx); err != nil {
//	    // state is unchanged
//	}
package ekf

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Default noise settings.
const (
	DefaultProcessNoise      = 0.0
	DefaultMeasurementNoise  = 1e-4
	DefaultInitialCovariance = 1.0
)

var (
	ErrDimension          = errors.New("dimension mismatch")
	ErrSingularInnovation = errors.New("singular innovation covariance")
	errNoiseLen           = errors.New("noise vector length must match dimension")
)

// EKF holds the filter state. It is not safe for concurrent use.
type EKF struct {
	n, m int

	x *mat.VecDense // state estimate, N
	p *mat.Dense    // state covariance, NxN
	q *mat.Dense    // process noise, NxN
	r *mat.Dense    // measurement noise, MxM
	f *mat.Dense    // state transition, NxN

	eye *mat.Dense // NxN identity

	// scratch
	s    mat.Dense
	sInv mat.Dense
	k    mat.Dense
	ph   mat.Dense
	kh   mat.Dense
	tmp  mat.Dense
	y    mat.VecDense
	ky   mat.VecDense
}

// Option configures an EKF.
type Option func(*EKF) error

// WithProcessNoise sets Q to q on the diagonal.
func WithProcessNoise(q float64) Option {
	return func(e *EKF) error {
		e.q = diag(e.n, func(int) float64 { return q })
		return nil
	}
}

// WithProcessNoiseVector sets Q to the diagonal matrix of q.
func WithProcessNoiseVector(q []float64) Option {
	return func(e *EKF) error {
		if len(q) != e.n {
			return fmt.Errorf("process noise: %w", errNoiseLen)
		}
		e.q = diag(e.n, func(i int) float64 { return q[i] })
		return nil
	}
}

// WithMeasurementNoise sets R to the diagonal matrix of r.
func WithMeasurementNoise(r []float64) Option {
	return func(e *EKF) error {
		if len(r) != e.m {
			return fmt.Errorf("measurement noise: %w", errNoiseLen)
		}
		e.r = diag(e.m, func(i int) float64 { return r[i] })
		return nil
	}
}

// WithInitialCovariance sets P to p on the diagonal.
func WithInitialCovariance(p float64) Option {
	return func(e *EKF) error {
		e.p = diag(e.n, func(int) float64 { return p })
		return nil
	}
}

// WithInitialState sets X.
func WithInitialState(x []float64) Option {
	return func(e *EKF) error {
		if len(x) != e.n {
			return fmt.Errorf("initial state: %w", ErrDimension)
		}
		e.x = mat.NewVecDense(e.n, slices.Clone(x))
		return nil
	}
}

// WithTransition sets the state transition F. The default is identity.
func WithTransition(f mat.Matrix) Option {
	return func(e *EKF) error {
		if r, c := f.Dims(); r != e.n || c != e.n {
			return fmt.Errorf("transition %dx%d: %w", r, c, ErrDimension)
		}
		e.f = mat.DenseCopyOf(f)
		return nil
	}
}

// New returns a filter with n states and m observations.
func New(n, m int, opts ...Option) (*EKF, error) {
	if n <= 0 || m <= 0 {
		return nil, fmt.Errorf("ekf %dx%d: %w", n, m, ErrDimension)
	}

	e := &EKF{
		n:   n,
		m:   m,
		x:   mat.NewVecDense(n, nil),
		eye: diag(n, func(int) float64 { return 1 }),
	}
	e.p = diag(n, func(int) float64 { return DefaultInitialCovariance })
	e.q = diag(n, func(int) float64 { return DefaultProcessNoise })
	e.r = diag(m, func(int) float64 { return DefaultMeasurementNoise })
	e.f = diag(n, func(int) float64 { return 1 })

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// N returns the state dimension.
func (e *EKF) N() int { return e.n }

// M returns the observation dimension.
func (e *EKF) M() int { return e.m }

// X returns a copy of the state vector.
func (e *EKF) X() []float64 {
	return mat.Col(nil, 0, e.x)
}

// At returns state i.
func (e *EKF) At(i int) float64 {
	return e.x.AtVec(i)
}

// Covariance returns P(i, j).
func (e *EKF) Covariance(i, j int) float64 {
	return e.p.At(i, j)
}

// Predict advances the state one step: X = F X, P = F P Fᵀ + Q.
func (e *EKF) Predict() {
	var x mat.VecDense
	x.MulVec(e.f, e.x)
	e.x.CopyVec(&x)

	e.tmp.Reset()
	e.tmp.Mul(e.f, e.p)
	e.p.Mul(&e.tmp, e.f.T())
	e.p.Add(e.p, e.q)
}

// Update corrects the state with observations z, Jacobian h (MxN) and
// predicted observations hx. On error the state is left unchanged.
func (e *EKF) Update(z []float64, h mat.Matrix, hx []float64) error {
	if len(z) != e.m || len(hx) != e.m {
		return fmt.Errorf("observations %d/%d, want %d: %w", len(z), len(hx), e.m, ErrDimension)
	}
	if r, c := h.Dims(); r != e.m || c != e.n {
		return fmt.Errorf("jacobian %dx%d, want %dx%d: %w", r, c, e.m, e.n, ErrDimension)
	}

	// S = H P Hᵀ + R
	e.ph.Reset()
	e.ph.Mul(e.p, h.T())
	e.s.Reset()
	e.s.Mul(h, &e.ph)
	e.s.Add(&e.s, e.r)

	e.sInv.Reset()
	if err := e.sInv.Inverse(&e.s); err != nil {
		// Ill conditioned but finite inverses are still usable.
		var c mat.Condition
		if !errors.As(err, &c) || math.IsInf(float64(c), 1) {
			return fmt.Errorf("%w: %v", ErrSingularInnovation, err)
		}
	}

	// K = P Hᵀ S⁻¹
	e.k.Reset()
	e.k.Mul(&e.ph, &e.sInv)

	// X = X + K (z - hx)
	e.y.Reset()
	e.y.SubVec(mat.NewVecDense(e.m, slices.Clone(z)), mat.NewVecDense(e.m, slices.Clone(hx)))
	e.ky.Reset()
	e.ky.MulVec(&e.k, &e.y)
	e.x.AddVec(e.x, &e.ky)

	// P = (I - K H) P
	e.kh.Reset()
	e.kh.Mul(&e.k, h)
	e.kh.Sub(e.eye, &e.kh)
	e.tmp.Reset()
	e.tmp.Mul(&e.kh, e.p)
	e.p.Copy(&e.tmp)

	return nil
}

func diag(n int, v func(int) float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := range n {
		d.Set(i, i, v(i))
	}
	return d
}
