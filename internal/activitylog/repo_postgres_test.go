package activitylog

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPostgresRepo_Append(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr bool
	}{
		{
			name: "inserts row",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO activity_logs`).
					WithArgs("id-1", pgxmock.AnyArg(), "verifier", "validation", "session_1", `{"postcode":"2000"}`, `{"result":"pending"}`).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "propagates db error",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec(`INSERT INTO activity_logs`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			tt.setup(mock)
			repo := NewPostgresRepo(mock)

			err := repo.Append(context.Background(), Entry{
				ID:        "id-1",
				Timestamp: time.Now().UTC(),
				Tab:       TabVerifier,
				Action:    ActionValidation,
				Session:   "session_1",
				Input:     map[string]any{"postcode": "2000"},
				Output:    map[string]any{"result": "pending"},
			})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresRepo_SearchBuildsFiltersAndDecodesJSON(t *testing.T) {
	mock := newMock(t)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"id", "timestamp", "tab", "action", "user_session", "input", "output"}).
		AddRow("id-2", now, "verifier", "validation", "session_1", []byte(`{"postcode":"3000"}`), []byte(`{"isValid":true}`)).
		AddRow("id-1", now.Add(-time.Minute), "verifier", "validation", "session_1", []byte(`{}`), []byte(nil))
	mock.ExpectQuery(`SELECT .+ FROM activity_logs WHERE tab = \$1 AND action = \$2 ORDER BY "timestamp" DESC LIMIT 10`).
		WithArgs("verifier", "validation").
		WillReturnRows(rows)

	repo := NewPostgresRepo(mock)
	got, err := repo.Search(context.Background(), Query{Tab: TabVerifier, Action: ActionValidation, Size: 10})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "id-2", got[0].ID)
	assert.Equal(t, "3000", got[0].Input["postcode"])
	assert.Equal(t, true, got[0].Output["isValid"])
	assert.NotNil(t, got[1].Output)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_SearchTimeRange(t *testing.T) {
	mock := newMock(t)
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(`WHERE "timestamp" >= \$1 AND "timestamp" <= \$2 ORDER BY "timestamp" DESC LIMIT 50`).
		WithArgs(from, to).
		WillReturnRows(pgxmock.NewRows([]string{"id", "timestamp", "tab", "action", "user_session", "input", "output"}))

	got, err := NewPostgresRepo(mock).Search(context.Background(), Query{From: from, To: to})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
