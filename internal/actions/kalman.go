package actions

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/mat"

	"github.com/idudko/mendel/internal/ekf"
	"github.com/idudko/mendel/internal/values"
)

// KalmanName is the name reported by Kalman actions.
const KalmanName = "Kalman Filter"

// EPS is the measurement noise of inputs configured without an accuracy.
const EPS = ekf.DefaultMeasurementNoise

var (
	ErrNoOptions = errors.New("kalman action has no options")
	ErrNoOutput  = errors.New("kalman action has no output value id")
)

// KalmanOption maps one input metric onto one output property.
// Accuracy is optional; a positive value sets the input's measurement noise
// to (1/Accuracy)/100.
type KalmanOption struct {
	Input    string
	Output   string
	Accuracy float64
}

// KalmanConfig tunes the filter shared by all of an action's outputs.
// Zero values select the ekf defaults.
type KalmanConfig struct {
	ProcessNoise      float64
	InitialCovariance float64
}

// MeasurementNoise converts an accuracy into the variance used by the filter.
func MeasurementNoise(accuracy float64) float64 {
	if accuracy <= 0 {
		return EPS
	}
	return (1.0 / accuracy) / 100.0
}

type estimator interface {
	Predict()
	Update(z []float64, h mat.Matrix, hx []float64) error
	At(i int) float64
}

type kalmanOutput struct {
	property string
	valueID  values.MetricID
	idx      int
}

type kalmanInput struct {
	key       string
	valueID   values.MetricID
	inputIdx  int
	outputIdx int

	initialized bool
	fresh       bool
	last        float64
}

// KalmanAction fuses its inputs into one state estimate per output property
// and publishes the estimate as a JSON object.
type KalmanAction struct {
	id    string
	topic string

	outputs []kalmanOutput // registration order
	inputs  []kalmanInput  // sorted by key, then output index

	filter estimator
	z      []float64
	hx     []float64
	h      *mat.Dense

	result Result
}

// NewKalmanAction builds an action from its options. Outputs are indexed in
// the order their property first appears; each distinct (input, output) pair
// becomes one observation.
func NewKalmanAction(id, outputTopic, outputValueID string, options []KalmanOption, cfg KalmanConfig) (*KalmanAction, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrNoOptions)
	}
	if outputValueID == "" {
		return nil, fmt.Errorf("%s: %w", id, ErrNoOutput)
	}

	a := &KalmanAction{id: id, topic: outputTopic}

	outputIdx := make(map[string]int, len(options))
	for _, opt := range options {
		if _, ok := outputIdx[opt.Output]; ok {
			continue
		}
		idx := len(a.outputs)
		outputIdx[opt.Output] = idx
		a.outputs = append(a.outputs, kalmanOutput{
			property: opt.Output,
			valueID:  values.NewMetricID(OutputValueID(outputValueID, opt.Output)),
			idx:      idx,
		})
		log.Info().Str("action", id).Str("property", opt.Output).Int("idx", idx).Msg("kalman output")
	}

	type pair struct {
		input  string
		output int
	}
	seen := make(map[pair]struct{}, len(options))
	var noise []float64
	for _, opt := range options {
		p := pair{input: opt.Input, output: outputIdx[opt.Output]}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}

		a.inputs = append(a.inputs, kalmanInput{
			key:       opt.Input,
			valueID:   values.NewMetricID(opt.Input),
			inputIdx:  len(noise),
			outputIdx: p.output,
		})
		noise = append(noise, MeasurementNoise(opt.Accuracy))
		log.Info().Str("action", id).Str("input", opt.Input).Str("property", opt.Output).Msg("kalman input")
	}

	slices.SortFunc(a.inputs, func(x, y kalmanInput) int {
		if c := strings.Compare(x.key, y.key); c != 0 {
			return c
		}
		return cmp.Compare(x.outputIdx, y.outputIdx)
	})

	n, m := len(a.outputs), len(a.inputs)
	opts := []ekf.Option{ekf.WithMeasurementNoise(noise)}
	if cfg.ProcessNoise > 0 {
		opts = append(opts, ekf.WithProcessNoise(cfg.ProcessNoise))
	}
	if cfg.InitialCovariance > 0 {
		opts = append(opts, ekf.WithInitialCovariance(cfg.InitialCovariance))
	}
	filter, err := ekf.New(n, m, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	a.filter = filter
	a.z = make([]float64, m)
	a.hx = make([]float64, m)
	a.h = mat.NewDense(m, n, nil)
	return a, nil
}

// OutputValueID returns the metric id an output property is stored under.
func OutputValueID(valueID, property string) string {
	return valueID + ":" + property
}

func (a *KalmanAction) ID() string { return a.id }

func (a *KalmanAction) Name() string { return KalmanName }

// Inputs returns the distinct input metric ids in sorted order.
func (a *KalmanAction) Inputs() []string {
	ids := make([]string, 0, len(a.inputs))
	for _, in := range a.inputs {
		if len(ids) == 0 || ids[len(ids)-1] != in.key {
			ids = append(ids, in.key)
		}
	}
	return ids
}

// Outputs returns the output metric ids in registration order.
func (a *KalmanAction) Outputs() []string {
	ids := make([]string, len(a.outputs))
	for i, out := range a.outputs {
		ids[i] = out.valueID.ID
	}
	return ids
}

// Run folds the fresh params into the filter and publishes the estimate.
//
// The filter only advances when params hold at least one numeric input.
// Inputs absent from params that have been observed before are then re-read
// from the store and used as an observation only when their value moved since
// it was last consumed.
func (a *KalmanAction) Run(params []*values.MetricData, results *Results, store *values.Store, ts time.Time) {
	a.h.Zero()
	clear(a.hx)
	for i := range a.inputs {
		a.inputs[i].fresh = false
	}

	doCalc := false
	for _, p := range params {
		idx, found := slices.BinarySearchFunc(a.inputs, p.ID, func(in kalmanInput, id values.MetricID) int {
			return -id.CompareKey(in.key)
		})
		if !found {
			continue
		}

		v, ok := p.Binary.Number()
		if !ok || !finite(v) {
			log.Debug().Str("action", a.id).Stringer("input", p.ID).Msg("kalman input is not numeric")
			continue
		}
		for key := a.inputs[idx].key; idx < len(a.inputs) && a.inputs[idx].key == key; idx++ {
			a.inputs[idx].fresh = true
			a.observe(&a.inputs[idx], v)
		}
		doCalc = true
	}

	if doCalc {
		for i := range a.inputs {
			in := &a.inputs[i]
			if in.fresh || !in.initialized {
				continue
			}
			store.Find(func(c *values.Cell) {
				if v := c.Load(); v != in.last && finite(v) {
					a.observe(in, v)
				}
			}, in.valueID)
		}

		a.filter.Predict()
		if err := a.filter.Update(a.z, a.h, a.hx); err != nil {
			log.Warn().Err(err).Str("action", a.id).Msg("kalman update skipped")
		}
	}

	a.result.Topic = a.topic
	a.result.Data = append(a.result.Data[:0], '{')
	for _, out := range a.outputs {
		x := a.filter.At(out.idx)
		store.Find(func(c *values.Cell) { c.Store(x) }, out.valueID)

		a.result.Data = append(a.result.Data, '"')
		a.result.Data = append(a.result.Data, out.property...)
		a.result.Data = append(a.result.Data, '"', ':')
		a.result.Data = strconv.AppendFloat(a.result.Data, x, 'f', 2, 64)
		a.result.Data = append(a.result.Data, ',')
	}
	a.result.Data = append(a.result.Data, `"utc_micros":`...)
	a.result.Data = strconv.AppendInt(a.result.Data, ts.UnixMicro(), 10)
	a.result.Data = append(a.result.Data, '}')

	log.Debug().Str("action", a.id).Bytes("result", a.result.Data).Msg("kalman result")
	results.SwapDataBack(&a.result)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (a *KalmanAction) observe(in *kalmanInput, v float64) {
	in.initialized = true
	in.last = v
	a.h.Set(in.inputIdx, in.outputIdx, 1)
	a.hx[in.inputIdx] = a.filter.At(in.outputIdx)
	a.z[in.inputIdx] = v
}
