package address

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"address-validator/internal/activitylog"
	"address-validator/internal/locality"
	"address-validator/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	byQuery map[string][]locality.Location
	err     error
	calls   []string
}

func (s *stubLookup) Lookup(_ context.Context, query, state string) ([]locality.Location, error) {
	s.calls = append(s.calls, query+"|"+state)
	if s.err != nil {
		return nil, s.err
	}
	return s.byQuery[query], nil
}

type memRecorder struct {
	mu      sync.Mutex
	entries []activitylog.Entry
}

func (r *memRecorder) Record(e activitylog.Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
}

type verdictCounter map[string]int

func (v verdictCounter) ObserveVerdict(result string) { v[result]++ }

func melbourne() []locality.Location {
	return []locality.Location{
		{ID: locality.IntID(1), Name: "MELBOURNE", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
		{ID: locality.IntID(2), Name: "MELBOURNE UNIVERSITY", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
		{ID: locality.IntID(3), Name: "EAST MELBOURNE", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
		{ID: locality.IntID(4), Name: "DOCKLANDS", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
		{ID: locality.IntID(5), Name: "SOUTHBANK", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
		{ID: locality.IntID(6), Name: "CARLTON", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
		{ID: locality.IntID(7), Name: "WEST MELBOURNE", Postcode: "3000", State: "VIC", Category: "Delivery Area"},
	}
}

func newService(lookup locality.Lookuper) (*Service, *memRecorder, verdictCounter) {
	rec := &memRecorder{}
	vc := verdictCounter{}
	return NewService(lookup, rec, vc, logger.Discard()), rec, vc
}

func TestValidate_MatchedSuburb(t *testing.T) {
	lookup := &stubLookup{byQuery: map[string][]locality.Location{"3000": melbourne()}}
	svc, rec, vc := newService(lookup)

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "3000", Suburb: "Melbourne", State: "VIC"})
	require.NoError(t, err)
	assert.True(t, v.IsValid)
	require.NotNil(t, v.MatchedLocation)
	assert.Equal(t, "MELBOURNE", v.MatchedLocation.Name)
	assert.Empty(t, v.Error)
	assert.Equal(t, []string{"3000|"}, lookup.calls)
	assert.Equal(t, 1, vc[activitylog.ResultSuccess])

	require.Len(t, rec.entries, 2)
	assert.Equal(t, activitylog.ResultPending, rec.entries[0].Output["result"])
	assert.Equal(t, activitylog.ResultSuccess, rec.entries[1].Output["result"])
	assert.Equal(t, rec.entries[0].Session, rec.entries[1].Session)
	assert.True(t, strings.HasPrefix(v.Session, "session_"))
	assert.Equal(t, v.Session, rec.entries[1].Session)
}

func TestValidate_WrongState(t *testing.T) {
	lookup := &stubLookup{byQuery: map[string][]locality.Location{"3000": melbourne()}}
	svc, rec, _ := newService(lookup)

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "3000", Suburb: "Melbourne", State: "NSW", Session: "session_x"})
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, "The postcode 3000 does not exist in the state NSW. Available in: VIC", v.Error)
	assert.Nil(t, v.MatchedLocation)
	assert.Equal(t, "session_x", rec.entries[1].Session)
	assert.Equal(t, activitylog.ResultFailed, rec.entries[1].Output["result"])
}

func TestValidate_UnknownSuburbListsFiveCandidates(t *testing.T) {
	lookup := &stubLookup{byQuery: map[string][]locality.Location{"3000": melbourne()}}
	svc, _, _ := newService(lookup)

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "3000", Suburb: "Atlantis", State: "VIC"})
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, "The postcode 3000 does not match the suburb Atlantis. Available locations: MELBOURNE, MELBOURNE UNIVERSITY, EAST MELBOURNE, DOCKLANDS, SOUTHBANK", v.Error)
}

func TestValidate_NoLocations(t *testing.T) {
	svc, _, vc := newService(&stubLookup{})

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "9999", Suburb: "Anywhere", State: "VIC"})
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.Equal(t, "No locations found for postcode 9999", v.Error)
	assert.Equal(t, 1, vc[activitylog.ResultFailed])
}

func TestValidate_UpstreamFailureBecomesVerdict(t *testing.T) {
	upErr := &locality.UpstreamError{StatusCode: 503, Status: "503 Service Unavailable", Body: "down"}
	svc, rec, vc := newService(&stubLookup{err: upErr})

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "3000", Suburb: "Melbourne", State: "VIC"})
	require.NoError(t, err)
	assert.False(t, v.IsValid)
	assert.True(t, strings.HasPrefix(v.Error, "Validation failed: "))
	assert.Contains(t, v.Error, "503")
	assert.Equal(t, activitylog.ResultError, rec.entries[1].Output["result"])
	assert.Equal(t, 1, vc[activitylog.ResultError])
}

func TestValidate_MissingFieldsSkipLookup(t *testing.T) {
	lookup := &stubLookup{}
	svc, rec, _ := newService(lookup)

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "3000", Suburb: "  ", State: "VIC"})
	require.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "Please fill in all fields", v.Error)
	assert.Empty(t, lookup.calls)
	assert.Empty(t, rec.entries)
}

func TestValidate_WorksWithoutRecorder(t *testing.T) {
	lookup := &stubLookup{byQuery: map[string][]locality.Location{"3000": melbourne()}}
	svc := NewService(lookup, nil, nil, nil)

	v, err := svc.Validate(context.Background(), ValidateRequest{Postcode: "3000", Suburb: "docklands", State: "vic"})
	require.NoError(t, err)
	assert.True(t, v.IsValid)
	assert.Equal(t, "DOCKLANDS", v.MatchedLocation.Name)
}

func TestSearch_FiltersCategoriesAndRecords(t *testing.T) {
	locs := []locality.Location{
		{Name: "BONDI", State: "NSW", Category: "Delivery Area"},
		{Name: "BONDI", State: "NSW", Category: "Post Office Boxes"},
	}
	lookup := &stubLookup{byQuery: map[string][]locality.Location{"Bondi": locs}}
	svc, rec, _ := newService(lookup)

	got, err := svc.Search(context.Background(), SearchRequest{Query: " Bondi ", State: "NSW", Categories: []string{"Post Office Boxes"}, Session: "session_s"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Post Office Boxes", got[0].Category)
	assert.Equal(t, []string{"Bondi|NSW"}, lookup.calls)

	require.Len(t, rec.entries, 2)
	assert.Equal(t, activitylog.TabSource, rec.entries[1].Tab)
	assert.Equal(t, activitylog.ActionSearch, rec.entries[1].Action)
	assert.Equal(t, 1, rec.entries[1].Output["count"])
}

func TestSearch_ErrorIsReturnedAndRecorded(t *testing.T) {
	svc, rec, _ := newService(&stubLookup{err: locality.ErrNotConfigured})

	_, err := svc.Search(context.Background(), SearchRequest{Query: "2000"})
	require.ErrorIs(t, err, locality.ErrNotConfigured)
	require.Len(t, rec.entries, 2)
	assert.Equal(t, activitylog.ResultError, rec.entries[1].Output["result"])
}

func TestSearch_EmptyQuery(t *testing.T) {
	svc, rec, _ := newService(&stubLookup{})
	_, err := svc.Search(context.Background(), SearchRequest{Query: ""})
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, rec.entries)
}

func TestRecordSelection(t *testing.T) {
	svc, rec, _ := newService(&stubLookup{})
	lat, lng := -33.89, 151.27

	require.NoError(t, svc.RecordSelection(context.Background(), "session_1", locality.Location{Name: "BONDI", Latitude: &lat, Longitude: &lng}))
	require.Len(t, rec.entries, 1)
	assert.Equal(t, activitylog.ActionSelection, rec.entries[0].Action)
	assert.Equal(t, true, rec.entries[0].Output["hasPosition"])

	require.ErrorIs(t, svc.RecordSelection(context.Background(), "", locality.Location{}), ErrInvalidInput)
}
