package mva

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/din14970/hyperspy/environment"
	"github.com/din14970/hyperspy/events"
	lib "github.com/din14970/hyperspy/library"
	sdklog "github.com/din14970/hyperspy/log"
	"github.com/din14970/hyperspy/signal"
)

// Criteria for picking the sign of a separated component.
const (
	ReverseOnLoadings = "loadings"
	ReverseOnFactors  = "factors"
)

// CreateBSSOptions create bss options
type CreateBSSOptions func(*BSSConfig) error

// BSSConfig defines blind-source-separation properties
type BSSConfig struct {
	ReverseCriterion string `env:"MVA_REVERSE_CRITERION"`
	Rotator          *Rotator
}

// SetReverseCriterionOption set the component sign criterion option
func SetReverseCriterionOption(criterion string) CreateBSSOptions {
	return func(config *BSSConfig) error {
		config.ReverseCriterion = criterion
		return nil
	}
}

// SetRotatorOption set the rotator option
func SetRotatorOption(r *Rotator) CreateBSSOptions {
	return func(config *BSSConfig) error {
		if r == nil {
			return errors.New("nil rotator")
		}
		config.Rotator = r
		return nil
	}
}

// BSS orchestrates blind-source-separation housekeeping on a signal: factor
// rotation, component sign normalization and reconstruction. All signal
// mutation happens inside one suppression scope so listeners see a single
// data_changed notification per run instead of a storm.
type BSS struct {
	Config   *BSSConfig
	Logger   sdklog.Factory
	signal   *signal.Signal
	factors  *mat.Dense
	loadings *mat.Dense
}

// CreateBSS create a bss object over the signal and its decomposition
// results. Factors hold one separated component per column, loadings the
// per-observation mixing weights, and loadings rows x factors rows must
// cover the signal size.
func CreateBSS(sig *signal.Signal, factors, loadings *mat.Dense,
	options ...CreateBSSOptions) (*BSS, error) {
	if sig == nil {
		return nil, errors.New(lib.StringTags("create bss", "nil signal"))
	}
	if factors == nil || loadings == nil {
		return nil, errors.New(lib.StringTags("create bss", "nil decomposition results"))
	}
	fr, fc := factors.Dims()
	lr, lc := loadings.Dims()
	if fc != lc {
		return nil, errors.Errorf("factors have %d components, loadings %d", fc, lc)
	}
	if lr*fr != len(sig.Data()) {
		return nil, errors.Errorf("reconstruction size %d does not match signal size %d",
			lr*fr, len(sig.Data()))
	}
	config := BSSConfig{ReverseCriterion: ReverseOnLoadings}
	env, err := environment.CreateENV()
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create bss", "create env"))
	}
	if err = env.Parse(&config); err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create bss", "parse env"))
	}
	for _, op := range options {
		if err := op(&config); err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create bss", "option error"))
		}
	}
	if config.ReverseCriterion != ReverseOnLoadings && config.ReverseCriterion != ReverseOnFactors {
		return nil, errors.Errorf("unknown reverse component criterion %q", config.ReverseCriterion)
	}
	if config.Rotator == nil {
		rotator, err := CreateRotator()
		if err != nil {
			return nil, errors.Wrap(err, lib.StringTags("create bss", "create rotator"))
		}
		config.Rotator = rotator
	}
	logger, err := sdklog.CreateFactory()
	if err != nil {
		return nil, errors.Wrap(err, lib.StringTags("create bss", "get logger"))
	}
	return &BSS{
		Config:   &config,
		Logger:   logger,
		signal:   sig,
		factors:  mat.DenseCopyOf(factors),
		loadings: mat.DenseCopyOf(loadings),
	}, nil
}

// Factors returns the separated components, one per column.
func (b *BSS) Factors() *mat.Dense {
	return b.factors
}

// Loadings returns the mixing weights, one component per column.
func (b *BSS) Loadings() *mat.Dense {
	return b.loadings
}

// Run rotates the separated components, normalizes their signs and writes
// the reconstruction back into the signal. Intermediate mutations are
// suppressed; exactly one data_changed fires at the end.
func (b *BSS) Run(ctx context.Context) error {
	logger := b.Logger.For(ctx)
	suppressor, err := events.CreateSuppressor(b.signal.Events(), b.signal.Axes().Events())
	if err != nil {
		return errors.Wrap(err, lib.StringTags("run bss", "create suppressor"))
	}
	rotated, t, err := b.Config.Rotator.Orthomax(b.factors)
	if err != nil {
		return errors.Wrap(err, lib.StringTags("run bss", "orthomax"))
	}

	err = func() error {
		defer suppressor.Suppress()()
		b.factors = rotated
		var l mat.Dense
		l.Mul(b.loadings, t)
		b.loadings = &l
		b.autoReverse()
		return b.reconstruct()
	}()
	if err != nil {
		return errors.Wrap(err, lib.StringTags("run bss", "write back"))
	}

	_, components := b.factors.Dims()
	logger.Info("rotated separated components",
		zap.Int("components", components),
		zap.Float64("gamma", b.Config.Rotator.Config.Gamma),
	)
	return b.signal.Events().MustGet(signal.EventDataChanged).
		Trigger(nil, events.Kwargs{"obj": b.signal})
}

// ReverseComponents flips the sign of the given components in both factors
// and loadings.
func (b *BSS) ReverseComponents(indices ...int) error {
	_, components := b.factors.Dims()
	for _, i := range indices {
		if i < 0 || i >= components {
			return errors.Errorf("component %d out of range [0, %d)", i, components)
		}
		negateColumn(b.factors, i)
		negateColumn(b.loadings, i)
	}
	return nil
}

// autoReverse flips components whose criterion column is predominantly
// negative, so separated components come out mostly positive.
func (b *BSS) autoReverse() {
	criterion := b.loadings
	if b.Config.ReverseCriterion == ReverseOnFactors {
		criterion = b.factors
	}
	rows, components := criterion.Dims()
	for j := 0; j < components; j++ {
		minV := criterion.At(0, j)
		maxV := minV
		for i := 1; i < rows; i++ {
			v := criterion.At(i, j)
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
		if maxV < -minV {
			negateColumn(b.factors, j)
			negateColumn(b.loadings, j)
		}
	}
}

// reconstruct writes loadings . factors' into the signal buffer row-major.
func (b *BSS) reconstruct() error {
	var recon mat.Dense
	recon.Mul(b.loadings, b.factors.T())
	rows, cols := recon.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, recon.RawRowView(i)...)
	}
	return b.signal.SetData(data)
}

func negateColumn(m *mat.Dense, j int) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		m.Set(i, j, -m.At(i, j))
	}
}
