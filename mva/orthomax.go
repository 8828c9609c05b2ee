// Package mva holds the multivariate-analysis routines of the toolkit:
// orthogonal factor rotation and the blind-source-separation housekeeping
// built on top of it. The routines are heavy consumers of the events
// suppression API: iterative updates would otherwise flood listeners with
// intermediate notifications.
package mva

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/din14970/hyperspy/environment"
	lib "github.com/din14970/hyperspy/library"
)

// ErrNotConverged reports a rotation that hit the iteration cap before the
// convergence criterion.
var ErrNotConverged = errors.New("rotation did not converge")

// CreateRotatorOptions create rotator options
type CreateRotatorOptions func(*RotatorConfig) error

// RotatorConfig defines rotator properties. Gamma selects the rotation
// family: 1 is varimax, 0 quartimax, values outside [0, 1] switch to the
// pairwise sweep.
type RotatorConfig struct {
	Gamma         float64
	Tolerance     float64 `env:"MVA_TOLERANCE"`
	MaxIterations int     `env:"MVA_MAX_ITERATIONS"`
}

// SetGammaOption set rotation gamma option
func SetGammaOption(gamma float64) CreateRotatorOptions {
	return func(config *RotatorConfig) error {
		config.Gamma = gamma
		return nil
	}
}

// SetToleranceOption set convergence tolerance option
func SetToleranceOption(tolerance float64) CreateRotatorOptions {
	return func(config *RotatorConfig) error {
		if tolerance <= 0 {
			return errors.New("tolerance must be positive")
		}
		config.Tolerance = tolerance
		return nil
	}
}

// SetMaxIterationsOption set iteration cap option
func SetMaxIterationsOption(n int) CreateRotatorOptions {
	return func(config *RotatorConfig) error {
		if n <= 0 {
			return errors.New("max iterations must be positive")
		}
		config.MaxIterations = n
		return nil
	}
}

// Rotator performs orthogonal rotation of factor or loading matrices.
type Rotator struct {
	Config *RotatorConfig
}

// CreateRotator create a rotator. Tolerance and iteration cap default to the
// toolkit preferences and can be overridden from the environment.
func CreateRotator(options ...CreateRotatorOptions) (*Rotator, error) {
	prefs := environment.DefaultPreferences().MVA
	config := RotatorConfig{
		Gamma:         1,
		Tolerance:     prefs.Tolerance,
		MaxIterations: prefs.MaxIterations,
	}
	env, err := environment.CreateENV()
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create rotator", "create env"))
	}
	if err = env.Parse(&config); err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create rotator", "parse env"))
	}
	for _, op := range options {
		if err = op(&config); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create rotator", "option error"))
		}
	}
	return &Rotator{Config: &config}, nil
}

// Orthomax rotates a (d x m) towards the orthomax criterion and returns the
// rotated matrix b = a.t and the orthogonal rotation t. For gamma in [0, 1]
// it runs the Lawley-Maxwell SVD iteration, otherwise a sweep of bivariate
// rotations.
func (r *Rotator) Orthomax(a mat.Matrix) (b, t *mat.Dense, err error) {
	d, m := a.Dims()
	if d == 0 || m == 0 {
		return nil, nil, errors.New(lib.StringTags("orthomax", "empty matrix"))
	}
	if m == 1 {
		// nothing to rotate
		b = mat.DenseCopyOf(a)
		t = identity(1)
		return b, t, nil
	}
	gamma := r.Config.Gamma
	if gamma >= 0 && gamma <= 1 {
		return r.lawleyMaxwell(a, d, m)
	}
	return r.pairwise(a, d, m)
}

// lawleyMaxwell iterates t = uv' from the SVD of a'(d.b^3 - gamma.b.diag),
// converging on the stationary sum of singular values.
func (r *Rotator) lawleyMaxwell(a mat.Matrix, d, m int) (*mat.Dense, *mat.Dense, error) {
	b := mat.DenseCopyOf(a)
	t := identity(m)
	criterion := 0.0
	var svd mat.SVD
	for k := 0; k < r.Config.MaxIterations; k++ {
		old := criterion

		colsq := make([]float64, m)
		for j := 0; j < m; j++ {
			for i := 0; i < d; i++ {
				v := b.At(i, j)
				colsq[j] += v * v
			}
		}
		target := mat.NewDense(d, m, nil)
		target.Apply(func(i, j int, v float64) float64 {
			return float64(d)*v*v*v - r.Config.Gamma*v*colsq[j]
		}, b)
		var product mat.Dense
		product.Mul(a.T(), target)

		if ok := svd.Factorize(&product, mat.SVDThin); !ok {
			return nil, nil, errors.New(lib.StringTags("orthomax", "svd failed"))
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		t.Mul(&u, v.T())

		criterion = 0
		for _, s := range svd.Values(nil) {
			criterion += s
		}
		b.Mul(a, t)

		if criterion == 0 || math.Abs(criterion-old)/criterion < r.Config.Tolerance {
			return b, t, nil
		}
	}
	return nil, nil, errors.Wrapf(ErrNotConverged, "after %d iterations", r.Config.MaxIterations)
}

// pairwise sweeps bivariate rotations over every column pair until the
// largest rotation angle drops under the tolerance.
func (r *Rotator) pairwise(a mat.Matrix, d, m int) (*mat.Dense, *mat.Dense, error) {
	b := mat.DenseCopyOf(a)
	t := identity(m)
	gamma := r.Config.Gamma
	for iter := 0; iter < r.Config.MaxIterations; iter++ {
		maxTheta := 0.0
		for i := 0; i < m-1; i++ {
			for j := i + 1; j < m; j++ {
				var uv, uu, vv, usum, vsum float64
				for k := 0; k < d; k++ {
					bi := b.At(k, i)
					bj := b.At(k, j)
					u := bi*bi - bj*bj
					v := 2 * bi * bj
					uv += u * v
					uu += u * u
					vv += v * v
					usum += u
					vsum += v
				}
				numer := 2*uv - 2*gamma*usum*vsum/float64(d)
				denom := uu - vv - gamma*(usum*usum-vsum*vsum)/float64(d)
				theta := math.Atan2(numer, denom) / 4
				if math.Abs(theta) > maxTheta {
					maxTheta = math.Abs(theta)
				}
				rotateColumns(b, d, i, j, theta)
				rotateColumns(t, m, i, j, theta)
			}
		}
		if maxTheta < r.Config.Tolerance {
			return b, t, nil
		}
	}
	return nil, nil, errors.Wrapf(ErrNotConverged, "after %d iterations", r.Config.MaxIterations)
}

// rotateColumns applies the planar rotation [[cos, -sin], [sin, cos]] to
// columns i and j in place.
func rotateColumns(m *mat.Dense, rows, i, j int, theta float64) {
	c := math.Cos(theta)
	s := math.Sin(theta)
	for k := 0; k < rows; k++ {
		vi := m.At(k, i)
		vj := m.At(k, j)
		m.Set(k, i, vi*c+vj*s)
		m.Set(k, j, -vi*s+vj*c)
	}
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}
