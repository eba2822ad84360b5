package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aristay/bookingimport/internal/core"
)

type propertyRow struct {
	id   int64
	name string
}

// fakeDB answers the property queries from memory, applying lower() the
// way PostgreSQL does for ASCII and simple letters.
type fakeDB struct {
	properties []propertyRow
	queries    []string
	err        error
}

func (db *fakeDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("not implemented")
}

func (db *fakeDB) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.queries = append(db.queries, sql)
	if db.err != nil {
		return nil, db.err
	}
	var out []propertyRow
	for _, p := range db.properties {
		if sql == lookupProperty && strings.ToLower(p.name) != strings.ToLower(args[0].(string)) {
			continue
		}
		out = append(out, p)
	}
	return &fakeRows{rows: out, at: -1}, nil
}

type fakeRows struct {
	rows []propertyRow
	at   int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.at++
	return r.at < len(r.rows)
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.at]
	*dest[0].(*int64) = row.id
	*dest[1].(*string) = row.name
	return nil
}

func TestPostgres_LookupByName(t *testing.T) {
	tests := []struct {
		name    string
		lookup  string
		want    core.PropertyID
		queries int
		wantErr error
	}{
		{"lower matches", "beach HOUSE", 2, 1, nil},
		{"surrounding space", "  Beach House ", 2, 1, nil},
		{"folding beyond lower", "STRASSE 5", 1, 2, nil},
		{"unknown", "Lake Cabin", 0, 2, core.ErrPropertyNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &fakeDB{properties: []propertyRow{{1, "Straße 5"}, {2, "Beach House"}}}
			got, err := NewPostgres(db).LookupByName(context.Background(), tt.lookup)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("id = %d, want %d", got, tt.want)
			}
			if len(db.queries) != tt.queries {
				t.Errorf("ran %d queries, want %d", len(db.queries), tt.queries)
			}
		})
	}
}

func TestPostgres_AgreesWithMemory(t *testing.T) {
	names := []string{"Straße 5", "Beach House", "Café Rouge"}
	mem := NewMemory()
	db := &fakeDB{}
	for i, n := range names {
		mem.AddProperty(n)
		db.properties = append(db.properties, propertyRow{int64(i + 1), n})
	}
	pg := NewPostgres(db)

	for _, lookup := range []string{"STRASSE 5", "strasse 5", "beach house", "CAFÉ ROUGE", "Cafe Rouge"} {
		memID, memErr := mem.LookupByName(context.Background(), lookup)
		pgID, pgErr := pg.LookupByName(context.Background(), lookup)
		if memID != pgID || (memErr == nil) != (pgErr == nil) {
			t.Errorf("%q: memory = %d, %v; postgres = %d, %v", lookup, memID, memErr, pgID, pgErr)
		}
	}
}

func TestPostgres_LookupByNameQueryError(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	_, err := NewPostgres(db).LookupByName(context.Background(), "Beach House")
	if err == nil || errors.Is(err, core.ErrPropertyNotFound) {
		t.Errorf("err = %v, want the query error", err)
	}
}
