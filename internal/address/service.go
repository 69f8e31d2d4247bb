package address

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"address-validator/internal/activitylog"
	"address-validator/internal/locality"
	"address-validator/internal/matching"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidInput = errors.New("address: invalid input")

const msgFillAllFields = "Please fill in all fields"

// Recorder accepts activity entries without blocking; *activitylog.Recorder satisfies it.
type Recorder interface {
	Record(e activitylog.Entry)
}

type VerdictObserver interface {
	ObserveVerdict(result string)
}

// Verdict results reported to the VerdictObserver, besides the activitylog results.
const resultInvalidInput = "invalid_input"

// Service validates addresses and searches localities, recording activity as it goes.
// Activity recording is best-effort and never affects the returned result.
type Service struct {
	lookup   locality.Lookuper
	recorder Recorder
	observer VerdictObserver
	validate *validator.Validate
	log      *slog.Logger
}

func NewService(lookup locality.Lookuper, recorder Recorder, observer VerdictObserver, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		lookup:   lookup,
		recorder: recorder,
		observer: observer,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With("component", "address"),
	}
}

// Validate checks that postcode, suburb and state describe one real locality.
// Lookup failures become an invalid verdict; only missing fields return an error.
func (s *Service) Validate(ctx context.Context, req ValidateRequest) (Verdict, error) {
	req.Postcode = strings.TrimSpace(req.Postcode)
	req.Suburb = strings.TrimSpace(req.Suburb)
	req.State = strings.TrimSpace(req.State)
	if req.Session == "" {
		req.Session = activitylog.NewSessionID()
	}

	if err := s.validate.Struct(req); err != nil {
		s.observe(resultInvalidInput)
		return Verdict{IsValid: false, Error: msgFillAllFields, Session: req.Session}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	input := map[string]any{"postcode": req.Postcode, "suburb": req.Suburb, "state": req.State}
	s.record(activitylog.Entry{
		Tab:     activitylog.TabVerifier,
		Action:  activitylog.ActionValidation,
		Session: req.Session,
		Input:   input,
		Output:  map[string]any{"result": activitylog.ResultPending},
	})

	verdict, result := s.evaluate(ctx, req)
	verdict.Session = req.Session

	output := map[string]any{"isValid": verdict.IsValid, "result": result}
	if verdict.Error != "" {
		output["error"] = verdict.Error
	}
	if verdict.MatchedLocation != nil {
		output["matchedLocation"] = *verdict.MatchedLocation
	}
	s.record(activitylog.Entry{
		Tab:     activitylog.TabVerifier,
		Action:  activitylog.ActionValidation,
		Session: req.Session,
		Input:   input,
		Output:  output,
	})
	s.observe(result)

	return verdict, nil
}

func (s *Service) evaluate(ctx context.Context, req ValidateRequest) (Verdict, string) {
	candidates, err := s.lookup.Lookup(ctx, req.Postcode, "")
	if err != nil {
		s.log.Warn("postcode lookup failed", "postcode", req.Postcode, "err", err)
		return Verdict{Error: fmt.Sprintf("Validation failed: %s", err)}, activitylog.ResultError
	}
	if len(candidates) == 0 {
		return Verdict{Error: fmt.Sprintf("No locations found for postcode %s", req.Postcode)}, activitylog.ResultFailed
	}

	out := matching.Match(candidates, req.Suburb, req.State)
	switch out.Kind {
	case matching.NoStateMatch:
		return Verdict{Error: fmt.Sprintf("The postcode %s does not exist in the state %s. Available in: %s",
			req.Postcode, req.State, strings.Join(out.States, ", "))}, activitylog.ResultFailed
	case matching.NoSuburbMatch:
		return Verdict{Error: fmt.Sprintf("The postcode %s does not match the suburb %s. Available locations: %s",
			req.Postcode, req.Suburb, strings.Join(out.Suggestions, ", "))}, activitylog.ResultFailed
	default:
		loc := out.Location
		return Verdict{IsValid: true, MatchedLocation: &loc}, activitylog.ResultSuccess
	}
}

// Search looks up localities by free text, optionally narrowed by state and categories.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]locality.Location, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.Session == "" {
		req.Session = activitylog.NewSessionID()
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	input := map[string]any{"query": req.Query, "state": req.State, "categories": req.Categories}
	s.record(activitylog.Entry{
		Tab:     activitylog.TabSource,
		Action:  activitylog.ActionSearch,
		Session: req.Session,
		Input:   input,
		Output:  map[string]any{"result": activitylog.ResultPending},
	})

	locs, err := s.lookup.Lookup(ctx, req.Query, req.State)
	if err != nil {
		s.record(activitylog.Entry{
			Tab:     activitylog.TabSource,
			Action:  activitylog.ActionSearch,
			Session: req.Session,
			Input:   input,
			Output:  map[string]any{"error": err.Error(), "result": activitylog.ResultError},
		})
		return nil, err
	}

	locs = locality.FilterByCategories(locs, req.Categories)
	s.record(activitylog.Entry{
		Tab:     activitylog.TabSource,
		Action:  activitylog.ActionSearch,
		Session: req.Session,
		Input:   input,
		Output:  map[string]any{"count": len(locs), "result": activitylog.ResultSuccess},
	})
	return locs, nil
}

// RecordSelection notes that the user picked a location from search results.
func (s *Service) RecordSelection(_ context.Context, session string, loc locality.Location) error {
	if strings.TrimSpace(session) == "" {
		return fmt.Errorf("%w: session is required", ErrInvalidInput)
	}
	_, _, hasPosition := loc.Position()
	s.record(activitylog.Entry{
		Tab:     activitylog.TabSource,
		Action:  activitylog.ActionSelection,
		Session: session,
		Input:   map[string]any{"location": loc},
		Output:  map[string]any{"hasPosition": hasPosition, "result": activitylog.ResultSuccess},
	})
	return nil
}

func (s *Service) record(e activitylog.Entry) {
	if s.recorder != nil {
		s.recorder.Record(e)
	}
}

func (s *Service) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveVerdict(result)
	}
}
