package app

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRows struct {
	cols []string
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                        {}
func (r *fakeRows) Err() error                    { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (r *fakeRows) RawValues() [][]byte           { return nil }
func (r *fakeRows) Conn() *pgx.Conn               { return nil }

func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	out := make([]pgconn.FieldDescription, len(r.cols))
	for i, c := range r.cols {
		out[i] = pgconn.FieldDescription{Name: c}
	}
	return out
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.data[r.pos-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	if len(dest) == 1 {
		if rs, ok := dest[0].(pgx.RowScanner); ok {
			return rs.ScanRow(r)
		}
	}
	return errors.New("fakeRows: unsupported scan")
}

type recordedQuery struct {
	sql  string
	args []any
}

// fakeQuerier answers staff_hours lookups for a single known staff id.
type fakeQuerier struct {
	knownStaff string
	queries    []recordedQuery
	err        error
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.queries = append(q.queries, recordedQuery{sql: sql, args: args})
	if q.err != nil {
		return nil, q.err
	}
	rows := &fakeRows{cols: []string{"staff_id", "monday_start_time"}}
	if len(args) == 1 && args[0] == q.knownStaff {
		rows.data = [][]any{{q.knownStaff, int32(600)}}
	}
	return rows, nil
}

func TestStaffIDVariants(t *testing.T) {
	tests := []struct {
		id   string
		want []string
	}{
		{"ABC", []string{"ABC"}},
		{"A10", []string{"A10", "AIO", "AI0"}},
		{"1I0O", []string{"1I0O", "IIOO", "1100", "II0O", "110O"}},
	}
	for _, tt := range tests {
		if got := staffIDVariants(tt.id); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("staffIDVariants(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestStaffHoursFallsBackToLookAlike(t *testing.T) {
	q := &fakeQuerier{knownStaff: "AIO"}
	row, err := NewPostgresRules(q).StaffHours(context.Background(), "A10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if row == nil || row["staff_id"] != "AIO" {
		t.Fatalf("expected look-alike record, got %v", row)
	}
	if len(q.queries) != 2 {
		t.Fatalf("expected exact then look-alike query, got %d queries", len(q.queries))
	}
}

func TestStaffHoursAbsent(t *testing.T) {
	q := &fakeQuerier{knownStaff: "zzz"}
	row, err := NewPostgresRules(q).StaffHours(context.Background(), "A10")
	if err != nil || row != nil {
		t.Fatalf("expected nil, nil; got %v, %v", row, err)
	}
	if len(q.queries) != 3 {
		t.Fatalf("expected one query per variant, got %d", len(q.queries))
	}
}

func TestRuleQueriesScopeToStaffAndStore(t *testing.T) {
	q := &fakeQuerier{}
	rules := NewPostgresRules(q)
	ctx := context.Background()

	if _, err := rules.TimeOff(ctx, "A"); err != nil {
		t.Fatalf("time off: %v", err)
	}
	if _, err := rules.TimeBlocks(ctx, "A"); err != nil {
		t.Fatalf("time blocks: %v", err)
	}
	for _, rq := range q.queries {
		if !strings.Contains(rq.sql, "staff_id IS NULL") {
			t.Fatalf("expected store-wide entries to be included: %s", rq.sql)
		}
		if len(rq.args) != 1 || rq.args[0] != "A" {
			t.Fatalf("unexpected args %v", rq.args)
		}
	}
}

func TestRuleQueryErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := NewPostgresRules(&fakeQuerier{err: boom}).StoreHours(context.Background())
	if !errors.Is(err, boom) || !strings.Contains(err.Error(), "query business hours") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}
