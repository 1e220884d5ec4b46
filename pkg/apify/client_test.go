package apify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewClient("test-token", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
}

func TestRunActor(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/acts/clockworks~tiktok-scraper/runs", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var in TikTokInput
		require.NoError(t, json.Unmarshal(body, &in))
		assert.Equal(t, []string{"stockguru"}, in.Profiles)
		assert.Equal(t, 25, in.ResultsPerPage)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"run_1","status":"READY","defaultDatasetId":"ds_1"}}`))
	})

	run, err := c.RunActor(context.Background(), TikTokActor, ProfileInput([]string{"stockguru"}, 25))
	require.NoError(t, err)
	assert.Equal(t, "run_1", run.ID)
	assert.Equal(t, StatusReady, run.Status)
	assert.Equal(t, "ds_1", run.DefaultDatasetID)
	assert.False(t, run.Terminal())
}

func TestRunActor_APIError(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"rate-limit-exceeded"}}`))
	})

	_, err := c.RunActor(context.Background(), TikTokActor, KeywordInput([]string{"stocks"}, 10))
	require.Error(t, err)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Contains(t, err.Error(), "rate-limit-exceeded")
}

func TestStatusCode_NonAPIError(t *testing.T) {
	assert.Equal(t, 0, StatusCode(assert.AnError))
	assert.Equal(t, 0, StatusCode(nil))
}

func TestDatasetItems(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/datasets/ds_1/items", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(`[{"id":"7301","text":"buy NVDA","playCount":1200},{"id":"7302","text":"hold"}]`))
	})

	items, err := c.DatasetItems(context.Background(), "ds_1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "7301", items[0]["id"])
	assert.Equal(t, json.Number("1200"), items[0]["playCount"])
}

func TestPollRun_Succeeds(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/actor-runs/run_1", r.URL.Path)
		status := StatusRunning
		if calls.Add(1) >= 3 {
			status = StatusSucceeded
		}
		_, _ = w.Write([]byte(`{"data":{"id":"run_1","status":"` + status + `","defaultDatasetId":"ds_1"}}`))
	})

	run, err := PollRun(context.Background(), c, "run_1",
		WithPollInterval(time.Millisecond),
		WithPollCap(2*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, run.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPollRun_Failed(t *testing.T) {
	for _, status := range []string{StatusFailed, StatusAborted, StatusTimedOut} {
		t.Run(status, func(t *testing.T) {
			_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":{"id":"r","status":"` + status + `"}}`))
			})

			run, err := PollRun(context.Background(), c, "r", WithPollInterval(time.Millisecond))
			require.ErrorIs(t, err, ErrRunFailed)
			require.NotNil(t, run)
			assert.Equal(t, status, run.Status)
		})
	}
}

func TestPollRun_Timeout(t *testing.T) {
	_, c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"r","status":"RUNNING"}}`))
	})

	_, err := PollRun(context.Background(), c, "r",
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(30*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunAndCollect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/acts/clockworks~tiktok-scraper/runs", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"run_9","status":"RUNNING","defaultDatasetId":"ds_9"}}`))
	})
	mux.HandleFunc("/actor-runs/run_9", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"id":"run_9","status":"SUCCEEDED","defaultDatasetId":"ds_9"}}`))
	})
	mux.HandleFunc("/datasets/ds_9/items", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":"1"}]`))
	})
	_, c := newTestServer(t, mux.ServeHTTP)

	items, err := RunAndCollect(context.Background(), c, TikTokActor,
		KeywordInput([]string{"stocks"}, 5), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1", items[0]["id"])
}
