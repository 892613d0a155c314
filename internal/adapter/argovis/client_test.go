package argovis

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
	"github.com/couchcryptid/ocean-data-service/internal/fetch"
	"github.com/couchcryptid/ocean-data-service/internal/observability"
)

func testAdapter(baseURL string) *Adapter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := observability.NewMetricsForTesting()
	policy := fetch.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, BackoffMultiplier: 2}
	retryer := fetch.NewRetryer(policy, clockwork.NewRealClock(), logger, metrics)
	return New(baseURL, 100, 5*time.Second, retryer, logger, metrics)
}

func testRequest() domain.FetchRequest {
	return domain.FetchRequest{
		LonMin: 20, LonMax: 120, LatMin: -60, LatMax: 30,
		Start: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2015, 12, 31, 0, 0, 0, 0, time.UTC),
	}
}

const catalogBody = `[
	{
		"_id": "5904859_101",
		"geoLocation": {"coordinates": [72.5, 12.25]},
		"data": {
			"temperature": [null, 28.113, 27.9],
			"salinity": [35.012, 35.1],
			"pressure": [5.1, 10.2],
			"oxygen": [null, null]
		},
		"cycleNumber": 101,
		"date": "2015-06-01T12:00:00Z"
	},
	{
		"_id": "no-coords",
		"geoLocation": {"coordinates": []},
		"data": {"temperature": [20.0]},
		"date": "2015-06-02T00:00:00Z"
	},
	{
		"_id": "bad-date",
		"geoLocation": {"coordinates": [70.0, 10.0]},
		"data": {"temperature": [21.0]},
		"date": "sometime in june"
	},
	{
		"_id": "no-measurements",
		"geoLocation": {"coordinates": [71.0, 11.0]},
		"data": {"temperature": [null], "salinity": []},
		"date": "2015-06-03T00:00:00Z"
	},
	{
		"_id": "eastern-lon",
		"geoLocation": {"coordinates": [250.0, -5.0]},
		"data": {"pressure": [1500.5]},
		"date": "2015-06-04"
	}
]`

func TestAdapter_Fetch_MapsAndSkips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/catalog/profiles/", r.URL.Path)
		assert.Equal(t, "2015-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2015-12-31", r.URL.Query().Get("endDate"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "[[20,-60],[120,30]]", r.URL.Query().Get("box"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(catalogBody))
	}))
	defer srv.Close()

	records, err := testAdapter(srv.URL).Fetch(context.Background(), testRequest())
	require.NoError(t, err)

	// One malformed entry per failure mode skipped; two good entries survive.
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "5904859_101", first.ID)
	assert.Equal(t, 12.25, first.Lat)
	assert.Equal(t, 72.5, first.Lon)
	require.NotNil(t, first.Temperature)
	assert.Equal(t, 28.113, *first.Temperature) // first non-null level
	require.NotNil(t, first.Salinity)
	assert.Equal(t, 35.012, *first.Salinity)
	assert.Nil(t, first.Oxygen)
	require.NotNil(t, first.CycleNumber)
	assert.Equal(t, 101, *first.CycleNumber)
	assert.Equal(t, domain.StatusActive, first.Status)
	assert.Equal(t, domain.SourceLive, first.DataSource)

	second := records[1]
	assert.Equal(t, "eastern-lon", second.ID)
	assert.Equal(t, -110.0, second.Lon) // normalized from 250
	assert.Nil(t, second.Temperature)
	require.NotNil(t, second.Pressure)
}

func TestAdapter_Fetch_EmptyCatalogIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	records, err := testAdapter(srv.URL).Fetch(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAdapter_Fetch_UpstreamFailureAfterRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "catalog offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	records, err := testAdapter(srv.URL).Fetch(context.Background(), testRequest())

	require.Error(t, err)
	var fe *fetch.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Nil(t, records)
	assert.Equal(t, 2, calls) // MaxAttempts in the test policy
}

func TestAdapter_Fetch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not":"a list"}`))
	}))
	defer srv.Close()

	_, err := testAdapter(srv.URL).Fetch(context.Background(), testRequest())
	require.Error(t, err)
}
