package handler

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/idudko/mendel/internal/ingest"
	"github.com/idudko/mendel/internal/metrics"
	"github.com/idudko/mendel/internal/middleware"
	"github.com/idudko/mendel/internal/model"
	"github.com/idudko/mendel/internal/service"
	"github.com/idudko/mendel/internal/values"
	"github.com/idudko/mendel/pkg/hash"
)

type storeWriter struct {
	store *values.Store
}

// Write stores values directly so handler tests can read them back.
func (w storeWriter) Write(batch *[]values.MetricData) bool {
	for _, d := range *batch {
		var v float64
		if err := json.Unmarshal([]byte(d.Value), &v); err == nil {
			w.store.Find(func(c *values.Cell) { c.Store(v) }, d.ID)
		}
	}
	*batch = (*batch)[:0]
	return true
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	b := values.NewStoreBuilder()
	b.Add("room:temp")
	b.Add("room:hum")
	store := b.Create()

	temp := ingest.NewMetric("room:temp", "temperature", nil, nil)
	jh, err := ingest.NewJSONHandler("zigbee", []ingest.JSONProperty{
		{Pointer: "temperature", Property: "temperature", Metrics: []*ingest.Metric{temp}},
	})
	require.NoError(t, err)
	router := ingest.NewRouter([]*ingest.Route{ingest.NewRoute("zigbee2mqtt.*", []ingest.Handler{jh})}, storeWriter{store}, nil)

	return NewRouter(NewHandler(service.NewValuesService(store, router), cfg.Key), cfg)
}

func TestRouter_IngestAndRead(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/ingest/zigbee2mqtt/kitchen", bytes.NewBufferString(`{"temperature":21.5}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	var resp model.IngestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, model.IngestResponse{Subject: "zigbee2mqtt.kitchen", Values: 1}, resp)

	tests := []struct {
		name       string
		url        string
		wantStatus int
		wantBody   string
	}{
		{name: "list", url: "/values", wantStatus: http.StatusOK, wantBody: `[{"id":"room:hum","value":0},{"id":"room:temp","value":21.5}]`},
		{name: "get", url: "/value/room:temp", wantStatus: http.StatusOK, wantBody: `{"id":"room:temp","value":21.5}`},
		{name: "missing", url: "/value/garden", wantStatus: http.StatusNotFound},
		{name: "ping", url: "/ping", wantStatus: http.StatusOK},
		{name: "no metrics route", url: "/metrics", wantStatus: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestRouter_IngestUnmatched(t *testing.T) {
	srv := newTestServer(t, RouterConfig{})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest/garden/temp", bytes.NewBufferString("1")))
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"subject":"garden.temp","values":0}`, w.Body.String())

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_HashSigned(t *testing.T) {
	const key = "secret"
	srv := newTestServer(t, RouterConfig{Key: key})

	body := []byte(`{"temperature":3}`)
	req := httptest.NewRequest(http.MethodPost, "/ingest/zigbee2mqtt/garage", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderHash, hash.ComputeHash([]byte(`{"temperature":4}`), key))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/ingest/zigbee2mqtt/garage", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderHash, hash.ComputeHash(body, key))
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/value/room:temp", nil))
	require.Equal(t, http.StatusOK, w.Code)
	got, _ := io.ReadAll(w.Body)
	assert.True(t, hash.ValidateHash(got, key, w.Header().Get(middleware.HeaderHash)))
}

func TestRouter_IngestBodyLimit(t *testing.T) {
	const key = "secret"
	srv := newTestServer(t, RouterConfig{Key: key})

	big := bytes.Repeat([]byte("a"), MaxPayloadSize+1)

	// Decompressed size counts, not the size on the wire.
	var zipped bytes.Buffer
	gw := gzip.NewWriter(&zipped)
	_, err := gw.Write(big)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	require.Less(t, zipped.Len(), MaxPayloadSize)

	tests := []struct {
		name    string
		body    []byte
		gzipped bool
	}{
		{name: "signed", body: big},
		{name: "gzip", body: zipped.Bytes(), gzipped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/ingest/zigbee2mqtt/garage", bytes.NewReader(tt.body))
			req.Header.Set("Content-Type", "text/plain")
			req.Header.Set(middleware.HeaderHash, hash.ComputeHash(big, key))
			if tt.gzipped {
				req.Header.Set("Content-Encoding", "gzip")
			}
			w := httptest.NewRecorder()
			srv.ServeHTTP(w, req)
			assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		})
	}
}

func TestRouter_PingAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)
	m.Ingested("http", 3)

	srv := newTestServer(t, RouterConfig{Pinger: fakePinger{err: errors.New("nats down")}, Gatherer: reg})

	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mendel_")
}

func BenchmarkHandler_Ingest(b *testing.B) {
	bs := values.NewStoreBuilder()
	bs.Add("room:temp")
	store := bs.Create()
	vh, _ := ingest.NewValueHandler("raw", []*ingest.Metric{ingest.NewMetric("room:temp", "", nil, nil)})
	router := ingest.NewRouter([]*ingest.Route{ingest.NewRoute("a.b", []ingest.Handler{vh})}, storeWriter{store}, nil)
	srv := NewRouter(NewHandler(service.NewValuesService(store, router), ""), RouterConfig{})

	body := []byte("21.5")
	for b.Loop() {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ingest/a/b", bytes.NewReader(body)))
	}
}
