// Package state holds the per-session UI state of the address tools and its persisted form.
package state

import (
	"errors"
	"fmt"

	"address-validator/internal/locality"
)

type Tab string

const (
	TabVerifier Tab = "verifier"
	TabSource   Tab = "source"
	TabLogs     Tab = "logs"
)

func (t Tab) Valid() bool {
	return t == TabVerifier || t == TabSource || t == TabLogs
}

var ErrInvalidState = errors.New("state: invalid state")

type FormData struct {
	Postcode string `json:"postcode"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
}

// VerifierState is the address verifier form and its last verdict.
// IsValid is nil until a verdict exists.
type VerifierState struct {
	FormData         FormData           `json:"formData"`
	IsValid          *bool              `json:"isValid,omitempty"`
	Error            string             `json:"error,omitempty"`
	SelectedLocation *locality.Location `json:"selectedLocation,omitempty"`
}

type Filters struct {
	Categories []string `json:"categories"`
}

type SourceState struct {
	Query            string              `json:"query"`
	SelectedLocation *locality.Location  `json:"selectedLocation,omitempty"`
	Results          []locality.Location `json:"results"`
	Filters          Filters             `json:"filters"`
}

// AppState is the whole UI state of one session.
type AppState struct {
	ActiveTab Tab           `json:"activeTab"`
	Verifier  VerifierState `json:"verifier"`
	Source    SourceState   `json:"source"`
}

func New() AppState {
	return AppState{
		ActiveTab: TabVerifier,
		Verifier:  initialVerifier(),
		Source:    initialSource(),
	}
}

func initialVerifier() VerifierState {
	return VerifierState{}
}

func initialSource() SourceState {
	return SourceState{
		Results: []locality.Location{},
		Filters: Filters{Categories: []string{}},
	}
}

// VerifierPatch changes only the non-nil fields.
type VerifierPatch struct {
	FormData         *FormData
	IsValid          *bool
	Error            *string
	SelectedLocation *locality.Location
}

// SourcePatch changes only the non-nil fields.
type SourcePatch struct {
	Query            *string
	SelectedLocation *locality.Location
	Results          []locality.Location
	Filters          *Filters
}

func (s *AppState) SetActiveTab(t Tab) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown tab %q", ErrInvalidState, t)
	}
	s.ActiveTab = t
	return nil
}

func (s *AppState) SetVerifierData(p VerifierPatch) {
	if p.FormData != nil {
		s.Verifier.FormData = *p.FormData
	}
	if p.IsValid != nil {
		v := *p.IsValid
		s.Verifier.IsValid = &v
	}
	if p.Error != nil {
		s.Verifier.Error = *p.Error
	}
	if p.SelectedLocation != nil {
		loc := *p.SelectedLocation
		s.Verifier.SelectedLocation = &loc
	}
}

// SetVerifierForm replaces the form and clears the previous verdict, which no longer applies.
func (s *AppState) SetVerifierForm(f FormData) {
	s.Verifier.FormData = f
	s.Verifier.IsValid = nil
	s.Verifier.Error = ""
	s.Verifier.SelectedLocation = nil
}

func (s *AppState) SetSourceData(p SourcePatch) {
	if p.Query != nil {
		s.Source.Query = *p.Query
	}
	if p.SelectedLocation != nil {
		loc := *p.SelectedLocation
		s.Source.SelectedLocation = &loc
	}
	if p.Results != nil {
		s.Source.Results = append([]locality.Location(nil), p.Results...)
	}
	if p.Filters != nil {
		s.Source.Filters = Filters{Categories: append([]string{}, p.Filters.Categories...)}
	}
}

func (s *AppState) ResetVerifier() { s.Verifier = initialVerifier() }

func (s *AppState) ResetSource() { s.Source = initialSource() }
