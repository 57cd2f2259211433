package actions

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/idudko/mendel/internal/values"
)

type spyFilter struct {
	x        []float64
	predicts int
	updates  int
}

func (s *spyFilter) Predict() { s.predicts++ }

func (s *spyFilter) Update([]float64, mat.Matrix, []float64) error {
	s.updates++
	return nil
}

func (s *spyFilter) At(i int) float64 { return s.x[i] }

func newStore(t *testing.T, a *KalmanAction) *values.Store {
	t.Helper()
	b := values.NewStoreBuilder()
	for _, id := range a.Inputs() {
		b.Add(id)
	}
	for _, id := range a.Outputs() {
		b.Add(id)
	}
	return b.Create()
}

func param(id string, v values.Binary) *values.MetricData {
	return &values.MetricData{ID: values.NewMetricID(id), Binary: v}
}

func TestNewKalmanAction_Errors(t *testing.T) {
	_, err := NewKalmanAction("k", "out", "est", nil, KalmanConfig{})
	assert.ErrorIs(t, err, ErrNoOptions)

	_, err = NewKalmanAction("k", "out", "", []KalmanOption{{Input: "a", Output: "x"}}, KalmanConfig{})
	assert.ErrorIs(t, err, ErrNoOutput)
}

func TestNewKalmanAction_Mapping(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{
		{Input: "sensor:b", Output: "y"},
		{Input: "sensor:a", Output: "x"},
		{Input: "sensor:a", Output: "y"},
		{Input: "sensor:b", Output: "y"},
	}, KalmanConfig{})
	require.NoError(t, err)

	assert.Equal(t, []string{"est:y", "est:x"}, a.Outputs())
	assert.Equal(t, []string{"sensor:a", "sensor:b"}, a.Inputs())
	assert.Len(t, a.inputs, 3)
	assert.Equal(t, KalmanName, a.Name())
	assert.Equal(t, "k", a.ID())
}

func TestKalmanAction_ResultJSON(t *testing.T) {
	a, err := NewKalmanAction("k", "home/estimate", "est", []KalmanOption{
		{Input: "a", Output: "x"},
		{Input: "b", Output: "y"},
	}, KalmanConfig{})
	require.NoError(t, err)

	spy := &spyFilter{x: []float64{1.2345, -3.0}}
	a.filter = spy
	store := newStore(t, a)

	var results Results
	a.Run(nil, &results, store, time.UnixMicro(1700000000000000))

	require.Equal(t, 1, results.Len())
	assert.Equal(t, "home/estimate", results.Items[0].Topic)
	assert.Equal(t, `{"x":1.23,"y":-3.00,"utc_micros":1700000000000000}`, string(results.Items[0].Data))

	v, ok := store.Load(values.NewMetricID("est:y"))
	assert.True(t, ok)
	assert.Equal(t, -3.0, v)
}

func TestKalmanAction_NoMatchingInputsSkipsFilter(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{{Input: "sensor:temp", Output: "temp"}}, KalmanConfig{})
	require.NoError(t, err)

	spy := &spyFilter{x: []float64{0}}
	a.filter = spy
	store := newStore(t, a)

	var results Results
	a.Run([]*values.MetricData{param("sensor:other", values.Float(3))}, &results, store, time.Now())
	a.Run([]*values.MetricData{param("sensor:temp", values.Bool(true))}, &results, store, time.Now())

	assert.Zero(t, spy.predicts)
	assert.Zero(t, spy.updates)
	assert.Equal(t, 2, results.Len())

	a.Run([]*values.MetricData{param("sensor:temp", values.Int(3))}, &results, store, time.Now())
	assert.Equal(t, 1, spy.predicts)
	assert.Equal(t, 1, spy.updates)
}

func TestKalmanAction_ConvergesOnSingleInput(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{{Input: "sensor:temp", Output: "temp"}}, KalmanConfig{})
	require.NoError(t, err)
	store := newStore(t, a)

	var results Results
	prev := 0.0
	for range 10 {
		a.Run([]*values.MetricData{param("sensor:temp", values.Float(20))}, &results, store, time.Now())
		results.Reset()

		x, ok := store.Load(values.NewMetricID("est:temp"))
		require.True(t, ok)
		assert.GreaterOrEqual(t, x, prev)
		assert.LessOrEqual(t, x, 20.0)
		prev = x
	}

	assert.InDelta(t, 20, prev, 1e-3)
}

func TestKalmanAction_PartialObservation(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{
		{Input: "a", Output: "x"},
		{Input: "b", Output: "y"},
	}, KalmanConfig{})
	require.NoError(t, err)
	store := newStore(t, a)

	set := func(id string, v float64) {
		store.Find(func(c *values.Cell) { c.Store(v) }, values.NewMetricID(id))
	}
	load := func(id string) float64 {
		v, _ := store.Load(values.NewMetricID(id))
		return v
	}

	var results Results
	set("a", 10)
	set("b", 5)
	a.Run([]*values.MetricData{param("a", values.Float(10)), param("b", values.Float(5))}, &results, store, time.Now())
	y := load("est:y")
	require.InDelta(t, 5, y, 1e-3)

	for range 5 {
		set("a", 12)
		a.Run([]*values.MetricData{param("a", values.Float(12))}, &results, store, time.Now())
	}
	assert.InDelta(t, 12, load("est:x"), 1e-2)
	assert.Equal(t, y, load("est:y"))

	// Another writer moves b; the next fresh cycle picks it up from the store.
	set("b", 7)
	a.Run([]*values.MetricData{param("a", values.Float(12))}, &results, store, time.Now())
	assert.Greater(t, load("est:y"), y)
}

func TestKalmanAction_NeverSeenInputSkipped(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{
		{Input: "a", Output: "x"},
		{Input: "b", Output: "y"},
	}, KalmanConfig{})
	require.NoError(t, err)
	store := newStore(t, a)
	store.Find(func(c *values.Cell) { c.Store(99) }, values.NewMetricID("b"))

	var results Results
	a.Run([]*values.MetricData{param("a", values.Float(1))}, &results, store, time.Now())

	v, _ := store.Load(values.NewMetricID("est:y"))
	assert.Equal(t, 0.0, v)
}

func TestKalmanAction_ParamWithLocation(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{{Input: "sensor:temp:kitchen", Output: "t"}}, KalmanConfig{})
	require.NoError(t, err)
	spy := &spyFilter{x: []float64{0}}
	a.filter = spy

	var results Results
	p := &values.MetricData{ID: values.MetricID{ID: "sensor:temp", Location: "kitchen"}, Binary: values.Float(4)}
	a.Run([]*values.MetricData{p}, &results, newStore(t, a), time.Now())

	assert.Equal(t, 1, spy.updates)
	assert.Equal(t, 4.0, a.z[0])
}

func TestKalmanAction_NonFiniteInputsIgnored(t *testing.T) {
	a, err := NewKalmanAction("k", "out", "est", []KalmanOption{
		{Input: "a", Output: "x"},
		{Input: "b", Output: "y"},
	}, KalmanConfig{})
	require.NoError(t, err)
	store := newStore(t, a)
	set := func(id string, v float64) {
		store.Find(func(c *values.Cell) { c.Store(v) }, values.NewMetricID(id))
	}

	var results Results
	set("a", 1)
	set("b", 2)
	a.Run([]*values.MetricData{param("a", values.Float(1)), param("b", values.Float(2))}, &results, store, time.Now())

	spy := &spyFilter{x: []float64{1, 2}}
	a.filter = spy
	a.Run([]*values.MetricData{param("a", values.Float(math.NaN()))}, &results, store, time.Now())
	a.Run([]*values.MetricData{param("a", values.Float(math.Inf(1)))}, &results, store, time.Now())
	assert.Zero(t, spy.updates)

	// A non-finite value in the store is not used as a fallback observation.
	set("b", math.Inf(-1))
	a.Run([]*values.MetricData{param("a", values.Float(3))}, &results, store, time.Now())
	assert.Equal(t, 1, spy.updates)
	assert.Equal(t, 3.0, a.z[0])
	assert.Zero(t, a.h.At(1, 1))
}

func TestMeasurementNoise(t *testing.T) {
	assert.Equal(t, EPS, MeasurementNoise(0))
	assert.InDelta(t, 0.005, MeasurementNoise(2), 1e-12)
}
