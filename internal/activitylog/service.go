package activitylog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for activity entries.
//
// It MUST be append-only. Search returns newest first.
type Repository interface {
	Append(ctx context.Context, e Entry) error
	Search(ctx context.Context, q Query) ([]Entry, error)
}

var (
	ErrInvalidEntry = errors.New("activitylog: invalid entry")
	ErrInvalidQuery = errors.New("activitylog: invalid query")
)

type Service struct {
	repo  Repository
	clock func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now, newID: uuid.NewString}
}

// Record validates e, stamps it with an id and a UTC timestamp and appends it.
func (s *Service) Record(ctx context.Context, e Entry) (Entry, error) {
	if s.repo == nil {
		return Entry{}, errors.New("activitylog: repository not configured")
	}
	if !e.Tab.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown tab %q", ErrInvalidEntry, e.Tab)
	}
	if !e.Action.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown action %q", ErrInvalidEntry, e.Action)
	}
	if strings.TrimSpace(e.Session) == "" {
		return Entry{}, fmt.Errorf("%w: user_session is required", ErrInvalidEntry)
	}

	e.ID = s.newID()
	e.Timestamp = s.clock().UTC()
	if e.Input == nil {
		e.Input = map[string]any{}
	}
	if e.Output == nil {
		e.Output = map[string]any{}
	}

	if err := s.repo.Append(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("activitylog: append: %w", err)
	}
	return e, nil
}

// Recent returns entries matching q, newest first.
func (s *Service) Recent(ctx context.Context, q Query) ([]Entry, error) {
	if s.repo == nil {
		return nil, errors.New("activitylog: repository not configured")
	}
	q = q.withDefaults()
	if q.Tab != "" && !q.Tab.Valid() {
		return nil, fmt.Errorf("%w: unknown tab %q", ErrInvalidQuery, q.Tab)
	}
	if q.Action != "" && !q.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidQuery, q.Action)
	}
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("%w: to is before from", ErrInvalidQuery)
	}

	out, err := s.repo.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("activitylog: search: %w", err)
	}
	if out == nil {
		out = []Entry{}
	}
	return out, nil
}

// NewSessionID returns an opaque client session identifier.
func NewSessionID() string {
	return "session_" + uuid.NewString()
}
