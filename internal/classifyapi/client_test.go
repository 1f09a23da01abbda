package classifyapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/govsense/internal/classification"
	"github.com/wolfman30/govsense/internal/observability/metrics"
)

const resultBody = `{
  "classification": "constructive",
  "confidence": 0.9,
  "explanation": "ok",
  "timestamp": "2025-03-04T10:20:30.123456",
  "scores": {"keterkaitan_fakta": 90},
  "final_scores": {"constructive_percentage": 85.0, "destructive_percentage": 5.0, "classification": "Sangat Membangun"}
}`

func TestClassifyTextPostsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/classify_text", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"text": "Great policy"}, body)
		_, _ = io.WriteString(w, resultBody)
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	r, err := c.ClassifyText(context.Background(), "Great policy")
	require.NoError(t, err)
	assert.Equal(t, classification.CategoryConstructive, r.Category)
	assert.Equal(t, classification.BandStronglyConstructive, r.FinalScores.Classification)
	assert.Equal(t, 90, r.Scores[classification.CriterionFactualGrounding])
}

func TestClassifyImageSendsMultipartFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/classify_image", r.URL.Path)
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte{1, 2, 3}, data)
		assert.Equal(t, "meme.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		_, _ = io.WriteString(w, resultBody)
	}))
	defer srv.Close()

	r, err := New(srv.URL).ClassifyImage(context.Background(), "meme.png", "image/png", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Explanation)
}

func TestServiceErrorCarriesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"detail":"Image size exceeds 5MB limit."}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ClassifyImage(context.Background(), "a.png", "image/png", []byte{1})
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Image size exceeds 5MB limit.", svcErr.Detail)
}

func TestServiceErrorValidationDetailList(t *testing.T) {
	assert.Equal(t, "too long; bad", parseDetail([]byte(`{"detail":[{"msg":"too long"},{"msg":"bad"}]}`)))
	assert.Equal(t, "", parseDetail([]byte(`{"detail":{"code":1}}`)))
	assert.Equal(t, "", parseDetail([]byte(`<html>oops</html>`)))
	assert.Equal(t, "", parseDetail([]byte(`{"message":"x"}`)))
}

func TestNetworkFailureHasNoDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url).ClassifyText(context.Background(), "x")
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Zero(t, svcErr.StatusCode)
	assert.Empty(t, svcErr.Detail)
	assert.Error(t, svcErr.Err)
}

func TestMalformedBodyIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `not json`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ClassifyText(context.Background(), "x")
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusOK, svcErr.StatusCode)
	assert.Empty(t, svcErr.Detail)
}

func TestSchemaDriftIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"scores":{"toxicity":5},"final_scores":{"constructive_percentage":1,"destructive_percentage":2,"classification":"Netral"}}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ClassifyText(context.Background(), "x")
	assert.ErrorIs(t, err, classification.ErrUnknownCriterion)
}

func TestTimeoutProducesServiceError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(50*time.Millisecond)).ClassifyText(context.Background(), "x")
	var svcErr *ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "timeout", statusLabel(svcErr))
}

func TestRetriesTransientStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, resultBody)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewClientMetrics(reg)
	c := New(srv.URL, WithRetry(3, time.Millisecond), WithMetrics(m))
	_, err := c.ClassifyText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	families, err := reg.Gather()
	require.NoError(t, err)
	var retries float64
	for _, f := range families {
		if f.GetName() == "govsense_classify_client_retries_total" {
			retries = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, 2.0, retries)
}

func TestNoRetryByDefault(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New(srv.URL).ClassifyText(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, `{"detail":"Text must be less than 2000 characters"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithRetry(5, time.Millisecond)).ClassifyText(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		_, _ = io.WriteString(w, `{"status":"online","service":"GovSense API","version":"1.0.0","timestamp":"2025-01-01T00:00:00"}`)
	}))
	defer srv.Close()

	h, err := New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "online", h.Status)
	assert.Equal(t, "GovSense API", h.Service)
}

func TestServiceErrorMessage(t *testing.T) {
	assert.Equal(t, "classifyapi: status 500: Classification error: boom", (&ServiceError{StatusCode: 500, Detail: "Classification error: boom"}).Error())
	assert.Equal(t, "classifyapi: request failed: dial", (&ServiceError{Err: errors.New("dial")}).Error())
}
