package locality

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *http.Request) {
	t.Helper()
	var seen http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = *r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestLookup_SendsBearerAndQuery(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, `{"localities":""}`)
	c := New(srv.URL+"/postcode/search.json", "secret")

	locs, err := c.Lookup(context.Background(), "2000", "nsw")
	require.NoError(t, err)
	assert.Empty(t, locs)
	assert.NotNil(t, locs)
	assert.Equal(t, "Bearer secret", seen.Header.Get("Authorization"))
	assert.Equal(t, "application/json", seen.Header.Get("Accept"))
	assert.Equal(t, "2000", seen.URL.Query().Get("q"))
	assert.Equal(t, "nsw", seen.URL.Query().Get("state"))
}

func TestLookup_OmitsEmptyState(t *testing.T) {
	srv, seen := newUpstream(t, http.StatusOK, `{}`)
	c := New(srv.URL, "secret")

	_, err := c.Lookup(context.Background(), "Melbourne", "")
	require.NoError(t, err)
	_, has := seen.URL.Query()["state"]
	assert.False(t, has)
}

func TestLookup_SingleObjectEqualsOneElementArray(t *testing.T) {
	obj := `{"id":12,"location":"SYDNEY","postcode":"2000","state":"NSW","category":"Delivery Area","latitude":-33.86,"longitude":151.2}`
	single, _ := newUpstream(t, http.StatusOK, `{"localities":{"locality":`+obj+`}}`)
	array, _ := newUpstream(t, http.StatusOK, `{"localities":{"locality":[`+obj+`]}}`)

	a, err := New(single.URL, "t").Lookup(context.Background(), "2000", "")
	require.NoError(t, err)
	b, err := New(array.URL, "t").Lookup(context.Background(), "2000", "")
	require.NoError(t, err)

	require.Len(t, a, 1)
	assert.Equal(t, a, b)
	assert.Equal(t, "SYDNEY", a[0].Name)
	assert.Equal(t, "12", a[0].ID.String())
	lat, lng, ok := a[0].Position()
	assert.True(t, ok)
	assert.InDelta(t, -33.86, lat, 1e-9)
	assert.InDelta(t, 151.2, lng, 1e-9)
}

func TestLookup_NormalisesMissingFields(t *testing.T) {
	body := `{"localities":{"locality":[
		{"location":"DARWIN","postcode":800,"state":"NT"},
		{"id":"abc","location":"ALAWA","postcode":"0810","state":"NT","category":"","latitude":"-12.3","longitude":130.8},
		{"id":0,"location":"X","postcode":"0810","state":"NT","latitude":null,"longitude":null}
	]}}`
	srv, _ := newUpstream(t, http.StatusOK, body)

	locs, err := New(srv.URL, "t").Lookup(context.Background(), "08", "")
	require.NoError(t, err)
	require.Len(t, locs, 3)

	assert.Equal(t, "0", locs[0].ID.String())
	assert.Equal(t, "0800", locs[0].Postcode)
	assert.Equal(t, "Unknown", locs[0].Category)

	assert.Equal(t, "abc", locs[1].ID.String())
	assert.Equal(t, "Unknown", locs[1].Category)
	assert.Nil(t, locs[1].Latitude)
	_, _, ok := locs[1].Position()
	assert.False(t, ok)

	assert.Equal(t, "2", locs[2].ID.String())
	assert.Nil(t, locs[2].Longitude)
}

func TestLookup_IDRoundTripsInOriginalForm(t *testing.T) {
	locs := []Location{{ID: IntID(7)}, {ID: StringID("x7")}}
	b, err := json.Marshal(locs)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"id":7`)
	assert.Contains(t, string(b), `"id":"x7"`)

	var back []Location
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, locs, back)
}

func TestLookup_UpstreamErrorKeepsStatusAndBody(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusServiceUnavailable, "maintenance")

	_, err := New(srv.URL, "t").Lookup(context.Background(), "3000", "")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusServiceUnavailable, upErr.StatusCode)
	assert.Equal(t, "maintenance", upErr.Body)
	assert.False(t, upErr.Transport())
	assert.Contains(t, err.Error(), "503")
}

func TestLookup_InvalidJSONIsFormatError(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, "<html>oops</html>")

	_, err := New(srv.URL, "t").Lookup(context.Background(), "3000", "")
	var fmtErr *UpstreamFormatError
	require.ErrorAs(t, err, &fmtErr)
}

func TestLookup_TransportFailure(t *testing.T) {
	srv, _ := newUpstream(t, http.StatusOK, "{}")
	srv.Close()

	_, err := New(srv.URL, "t", WithTimeout(time.Second)).Lookup(context.Background(), "3000", "")
	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.True(t, upErr.Transport())
}

func TestLookup_PreconditionsMakeNoCall(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	_, err := New(srv.URL, "t").Lookup(context.Background(), "  ", "")
	assert.True(t, errors.Is(err, ErrEmptyQuery))

	_, err = New(srv.URL, "").Lookup(context.Background(), "2000", "")
	assert.True(t, errors.Is(err, ErrNotConfigured))

	assert.Zero(t, calls)
}

type recordingObserver struct{ outcomes []string }

func (o *recordingObserver) ObserveLookup(outcome string, _ time.Duration) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestLookup_ReportsOutcome(t *testing.T) {
	ok, _ := newUpstream(t, http.StatusOK, `{"localities":""}`)
	bad, _ := newUpstream(t, http.StatusBadRequest, `{}`)
	obs := &recordingObserver{}

	_, _ = New(ok.URL, "t", WithObserver(obs)).Lookup(context.Background(), "1", "")
	_, _ = New(bad.URL, "t", WithObserver(obs)).Lookup(context.Background(), "1", "")

	assert.Equal(t, []string{OutcomeOK, OutcomeUpstream}, obs.outcomes)
}
