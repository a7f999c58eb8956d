package avinode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerops/charterlink/internal/config"
	"github.com/brokerops/charterlink/internal/models"
	"github.com/brokerops/charterlink/pkg/logger"
)

func testConfig(baseURL string) config.AvinodeConfig {
	return config.AvinodeConfig{
		BaseURL:        baseURL,
		BearerToken:    "secret-bearer-token",
		APIToken:       "secret-api-token",
		APIVersion:     "v1",
		Product:        "charterlink-test/1.0",
		RequestTimeout: 5 * time.Second,
	}
}

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig(srv.URL), nil, logger.NewNop()), srv
}

func TestClientSendsRequiredHeaders(t *testing.T) {
	var got http.Header
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte(`{"id": "q1"}`))
	}))

	before := time.Now().UTC().Add(-2 * time.Second)
	_, err := client.GetQuote(context.Background(), "q1")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-bearer-token", got.Get("Authorization"))
	assert.Equal(t, "secret-api-token", got.Get("X-Avinode-ApiToken"))
	assert.Equal(t, "v1", got.Get("X-Avinode-ApiVersion"))
	assert.Equal(t, "charterlink-test/1.0", got.Get("X-Avinode-Product"))

	sent, err := time.Parse(time.RFC3339, got.Get("X-Avinode-SentTimestamp"))
	require.NoError(t, err)
	assert.True(t, sent.After(before), "timestamp must be freshly generated per request")
}

func TestClientClassifiesStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		check  func(t *testing.T, err error)
	}{
		{http.StatusNotFound, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrNotFound)
		}},
		{http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrAuthFailure)
		}},
		{http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrAuthFailure)
		}},
		{http.StatusTooManyRequests, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrRateLimited)
		}},
		{http.StatusInternalServerError, func(t *testing.T, err error) {
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
		}},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := client.GetQuote(context.Background(), "q1")
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClientRedactsCredentialsFromErrors(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream rejected token secret-api-token for secret-bearer-token`))
	}))

	_, err := client.GetQuote(context.Background(), "q1")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret-api-token")
	assert.NotContains(t, err.Error(), "secret-bearer-token")
	assert.Contains(t, err.Error(), "[redacted]")
}

func TestClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(testConfig(url), nil, logger.NewNop())
	_, err := client.GetQuote(context.Background(), "q1")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestFetchRFQsFallsBackToTripEndpoint(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rfqs/B22E7Z":
			w.WriteHeader(http.StatusNotFound)
		case "/trips/B22E7Z":
			w.Write([]byte(`{"data": {"id": "B22E7Z", "rfqs": [{"id": 41}, {"id": 42}]}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	id, err := Resolve("B22E7Z")
	require.NoError(t, err)

	rfqs, err := client.FetchRFQs(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, rfqs, 2)
	assert.Equal(t, "41", rfqs[0].Key())
}

func TestCreateTripParsesNestedResponse(t *testing.T) {
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/trips", r.URL.Path)
		w.Write([]byte(`{
			"data": {
				"id": "77812",
				"tripId": "B22E7Z",
				"actions": {"searchInAvinode": {"href": "https://marketplace.example/trips/B22E7Z"}}
			}
		}`))
	}))

	result, err := client.CreateTrip(context.Background(), models.CreateTripRequest{
		Segments: []models.SegmentRequest{
			{From: "KTEB", To: "KPBI", Date: "2026-09-14", Passengers: 4},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "B22E7Z", result.TripID)
	assert.Equal(t, "atrip-B22E7Z", result.CanonicalID)
	assert.Equal(t, "https://marketplace.example/trips/B22E7Z", result.DeepLink)
}

func TestCancelTripFallsBackToTripEndpoint(t *testing.T) {
	var paths []string
	client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/rfqs/998/cancel" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.Equal(t, "/trips/998/cancel", r.URL.Path)
		require.Equal(t, http.MethodPut, r.Method)
		w.WriteHeader(http.StatusOK)
	}))

	id, err := Resolve("arfq-998")
	require.NoError(t, err)

	err = client.CancelTrip(context.Background(), id, models.CancelByClient)
	require.NoError(t, err)
	assert.Equal(t, []string{"/rfqs/998/cancel", "/trips/998/cancel"}, paths)
}
