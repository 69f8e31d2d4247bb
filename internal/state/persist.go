package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"address-validator/internal/locality"
)

const (
	// SchemaVersion is written with every encoded snapshot.
	SchemaVersion = 1
	// MaxPersistedResults bounds Source.Results in a snapshot.
	MaxPersistedResults = 20
)

var (
	ErrUnsupportedVersion = errors.New("state: unsupported schema version")
	ErrInvalidSessionID   = errors.New("state: invalid session id")
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// Partialize returns the persisted subset of s: the active tab, the verifier form and
// verdict, the source query, selection and filters, and at most MaxPersistedResults results.
func (s AppState) Partialize() AppState {
	out := AppState{
		ActiveTab: s.ActiveTab,
		Verifier: VerifierState{
			FormData:         s.Verifier.FormData,
			IsValid:          s.Verifier.IsValid,
			Error:            s.Verifier.Error,
			SelectedLocation: s.Verifier.SelectedLocation,
		},
		Source: SourceState{
			Query:            s.Source.Query,
			SelectedLocation: s.Source.SelectedLocation,
			Filters:          Filters{Categories: append([]string{}, s.Source.Filters.Categories...)},
		},
	}
	n := len(s.Source.Results)
	if n > MaxPersistedResults {
		n = MaxPersistedResults
	}
	out.Source.Results = append(make([]locality.Location, 0, n), s.Source.Results[:n]...)
	if !out.ActiveTab.Valid() {
		out.ActiveTab = TabVerifier
	}
	return out
}

type envelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

func Encode(s AppState) ([]byte, error) {
	raw, err := json.Marshal(s.Partialize())
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return json.Marshal(envelope{Version: SchemaVersion, State: raw})
}

// Decode restores a snapshot written by Encode. Unknown versions are rejected.
func Decode(b []byte) (AppState, error) {
	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return AppState{}, fmt.Errorf("state: decode: %w", err)
	}
	if env.Version != SchemaVersion {
		return AppState{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.Version)
	}
	s := New()
	if err := json.Unmarshal(env.State, &s); err != nil {
		return AppState{}, fmt.Errorf("state: decode: %w", err)
	}
	if err := s.Check(); err != nil {
		return AppState{}, err
	}
	return s.Partialize(), nil
}

// Check reports whether s can be persisted as-is.
func (s AppState) Check() error {
	if !s.ActiveTab.Valid() {
		return fmt.Errorf("%w: unknown tab %q", ErrInvalidState, s.ActiveTab)
	}
	if st := s.Verifier.FormData.State; st != "" && !locality.IsStateCode(st) {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidState, st)
	}
	return nil
}
