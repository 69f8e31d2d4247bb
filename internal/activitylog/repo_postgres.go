package activitylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of *pgxpool.Pool the repository needs.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const activityTable = "activity_logs"

var activityColumns = []string{"id", `"timestamp"`, "tab", "action", "user_session", "input", "output"}

// PostgresRepo stores entries in the activity_logs table (see migrations).
type PostgresRepo struct {
	q  Querier
	sb sq.StatementBuilderType
}

func NewPostgresRepo(q Querier) *PostgresRepo {
	return &PostgresRepo{q: q, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

func (r *PostgresRepo) Append(ctx context.Context, e Entry) error {
	input, err := json.Marshal(e.Input)
	if err != nil {
		return fmt.Errorf("marshal input: %w", err)
	}
	output, err := json.Marshal(e.Output)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	query, args, err := r.sb.Insert(activityTable).
		Columns(activityColumns...).
		Values(e.ID, e.Timestamp, string(e.Tab), string(e.Action), e.Session, string(input), string(output)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Search(ctx context.Context, q Query) ([]Entry, error) {
	q = q.withDefaults()

	sel := r.sb.Select(activityColumns...).From(activityTable)
	if q.Tab != "" {
		sel = sel.Where(sq.Eq{"tab": string(q.Tab)})
	}
	if q.Action != "" {
		sel = sel.Where(sq.Eq{"action": string(q.Action)})
	}
	if !q.From.IsZero() {
		sel = sel.Where(sq.GtOrEq{`"timestamp"`: q.From})
	}
	if !q.To.IsZero() {
		sel = sel.Where(sq.LtOrEq{`"timestamp"`: q.To})
	}
	sel = sel.OrderBy(`"timestamp" DESC`).Limit(uint64(q.Size))

	query, args, err := sel.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select activity: %w", err)
	}
	defer rows.Close()

	out := make([]Entry, 0, q.Size)
	for rows.Next() {
		var (
			e             Entry
			ts            time.Time
			tab, action   string
			input, output []byte
		)
		if err := rows.Scan(&e.ID, &ts, &tab, &action, &e.Session, &input, &output); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		e.Timestamp = ts.UTC()
		e.Tab = Tab(tab)
		e.Action = Action(action)
		if e.Input, err = decodeObject(input); err != nil {
			return nil, fmt.Errorf("decode input of %s: %w", e.ID, err)
		}
		if e.Output, err = decodeObject(output); err != nil {
			return nil, fmt.Errorf("decode output of %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}
	return out, nil
}

func decodeObject(b []byte) (map[string]any, error) {
	m := map[string]any{}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}
