package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"docvalidator/classifier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, c classifier.Classifier, budget int) http.Handler {
	t.Helper()
	agg, err := classifier.NewAggregator(c, budget, nil)
	require.NoError(t, err)
	return NewServer(agg, c, 0, 1<<10, nil).Handler()
}

func confident(_ context.Context, text string) (classifier.Prediction, error) {
	if text == "" {
		return classifier.Prediction{}, classifier.InputError("text is empty")
	}
	if strings.Contains(text, "contrato") {
		return classifier.Prediction{Class: 0, Probabilities: [2]float32{0.9, 0.1}}, nil
	}
	return classifier.Prediction{Class: 1, Probabilities: [2]float32{0.4, 0.6}}, nil
}

func post(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClassifyHandler(t *testing.T) {
	h := newTestServer(t, classifier.ClassifierFunc(confident), 12)

	rec := post(h, "/api/classify", `{"text":"Contrato ASSINADO"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClassifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, 0, resp.Class)
	assert.InDelta(t, 0.7, resp.Probabilities[0], 1e-5)
	require.Len(t, resp.Chunks, 2)
	assert.Equal(t, "contrato", resp.Chunks[0].Text)
	assert.InDelta(t, 0.9, resp.Chunks[0].Weight, 1e-6)
}

func TestClassifyHandler_HTML(t *testing.T) {
	h := newTestServer(t, classifier.ClassifierFunc(confident), 118)

	body := `{"text":"<html><body><p>Contrato</p><script>x()</script></body></html>","content_type":"text/html"}`
	rec := post(h, "/api/classify", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ClassifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Chunks, 1)
	assert.Equal(t, "contrato", resp.Chunks[0].Text)
}

func TestClassifyHandler_Errors(t *testing.T) {
	failing := classifier.ClassifierFunc(func(context.Context, string) (classifier.Prediction, error) {
		return classifier.Prediction{}, errors.New("runtime down")
	})
	zero := classifier.ClassifierFunc(func(context.Context, string) (classifier.Prediction, error) {
		return classifier.Prediction{}, nil
	})

	testCases := []struct {
		name   string
		c      classifier.Classifier
		body   string
		status int
		kind   string
	}{
		{"EmptyText", classifier.ClassifierFunc(confident), `{"text":"   "}`, http.StatusBadRequest, "input"},
		{"MissingText", classifier.ClassifierFunc(confident), `{}`, http.StatusBadRequest, "input"},
		{"InvalidJSON", classifier.ClassifierFunc(confident), `{"text":`, http.StatusBadRequest, "input"},
		{"UnsupportedType", classifier.ClassifierFunc(confident), `{"text":"x","content_type":"image/png"}`, http.StatusBadRequest, "input"},
		{"TooLarge", classifier.ClassifierFunc(confident), `{"text":"` + strings.Repeat("a ", 1024) + `"}`, http.StatusRequestEntityTooLarge, "input"},
		{"ClassifierFails", failing, `{"text":"hello"}`, http.StatusInternalServerError, "classification"},
		{"ZeroWeight", zero, `{"text":"hello"}`, http.StatusUnprocessableEntity, "degenerate_aggregation"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestServer(t, tc.c, 118)
			rec := post(h, "/api/classify", tc.body)
			assert.Equal(t, tc.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.kind, resp.Kind)
		})
	}
}

func TestClassifyChunkHandler(t *testing.T) {
	var seen []string
	c := classifier.ClassifierFunc(func(ctx context.Context, text string) (classifier.Prediction, error) {
		seen = append(seen, text)
		return confident(ctx, text)
	})
	h := newTestServer(t, c, 5)

	rec := post(h, "/api/classify/chunk", `{"text":"contrato de locação residencial"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"contrato de locação residencial"}, seen)

	var resp ClassifyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 0, resp.Class)
	assert.Empty(t, resp.Chunks)
}

func TestMethodAndHealth(t *testing.T) {
	h := newTestServer(t, classifier.ClassifierFunc(confident), 118)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/classify", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestNonFinitePredictionNeverReturns200(t *testing.T) {
	nan := float32(math.NaN())
	c := classifier.ClassifierFunc(func(context.Context, string) (classifier.Prediction, error) {
		return classifier.Prediction{Class: 1, Probabilities: [2]float32{nan, nan}}, nil
	})
	h := newTestServer(t, c, 118)

	rec := post(h, "/api/classify", `{"text":"hello"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degenerate_aggregation", resp.Kind)

	rec = post(h, "/api/classify/chunk", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}
