package query_test

import (
	"reflect"
	"strings"
	"testing"

	"github.com/JaimeStill/book-search/pkg/query"
)

func newTestProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "books", "b").
		Project("id", "ID").
		Project("position", "Position").
		Project("title", "Title")
}

func TestProjectionMap(t *testing.T) {
	pm := newTestProjection()

	if pm.Table() != "public.books b" {
		t.Errorf("Table() = %q, want %q", pm.Table(), "public.books b")
	}
	if pm.Columns() != "b.id, b.position, b.title" {
		t.Errorf("Columns() = %q", pm.Columns())
	}
	if pm.Column("Title") != "b.title" {
		t.Errorf("Column(Title) = %q, want b.title", pm.Column("Title"))
	}
	if pm.Column("Unknown") != "Unknown" {
		t.Errorf("Column(Unknown) = %q, want input returned", pm.Column("Unknown"))
	}
}

func TestBuilder_BuildCount(t *testing.T) {
	sql, args := query.NewBuilder(newTestProjection()).BuildCount()

	if sql != "SELECT COUNT(*) FROM public.books b" {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want empty", args)
	}
}

func TestBuilder_BuildPage(t *testing.T) {
	b := query.NewBuilder(newTestProjection(), query.SortField{Field: "Position"})

	sql, _ := b.BuildPage(3, 20)

	want := "SELECT b.id, b.position, b.title FROM public.books b ORDER BY b.position ASC LIMIT 20 OFFSET 40"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}
}

func TestBuilder_BuildSingle(t *testing.T) {
	sql, args := query.NewBuilder(newTestProjection()).BuildSingle("ID", "42")

	if !strings.HasSuffix(sql, "WHERE b.id = $1") {
		t.Errorf("sql = %q", sql)
	}
	if !reflect.DeepEqual(args, []any{"42"}) {
		t.Errorf("args = %v", args)
	}
}

func TestBuilder_Conditions(t *testing.T) {
	title := "alice"
	empty := ""

	b := query.NewBuilder(newTestProjection()).
		WhereContains("Title", &title).
		WhereContains("Title", &empty).
		WhereContains("Title", nil).
		WhereEquals("Position", 2).
		WhereIn("ID", []any{"1", "2"})

	sql, args := b.BuildCount()

	want := "SELECT COUNT(*) FROM public.books b WHERE b.title ILIKE $1 AND b.position = $2 AND b.id IN ($3, $4)"
	if sql != want {
		t.Errorf("sql = %q, want %q", sql, want)
	}

	wantArgs := []any{"%alice%", 2, "1", "2"}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Errorf("args = %v, want %v", args, wantArgs)
	}
}

func TestBuilder_WhereSearch(t *testing.T) {
	search := "wonder"
	sql, args := query.NewBuilder(newTestProjection()).
		WhereSearch(&search, "ID", "Title").
		BuildCount()

	if !strings.Contains(sql, "(b.id ILIKE $1 OR b.title ILIKE $2)") {
		t.Errorf("sql = %q", sql)
	}
	if len(args) != 2 {
		t.Errorf("len(args) = %d, want 2", len(args))
	}
}

func TestBuilder_OrderByFields_SkipsUnknown(t *testing.T) {
	b := query.NewBuilder(newTestProjection(), query.SortField{Field: "Position"}).
		OrderByFields([]query.SortField{
			{Field: "Title", Descending: true},
			{Field: "DROP TABLE"},
		})

	sql, _ := b.BuildPage(1, 10)
	if !strings.Contains(sql, "ORDER BY b.title DESC LIMIT") {
		t.Errorf("sql = %q", sql)
	}
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		in   string
		want []query.SortField
	}{
		{"", nil},
		{"Title", []query.SortField{{Field: "Title"}}},
		{"Title,-Position", []query.SortField{{Field: "Title"}, {Field: "Position", Descending: true}}},
		{" Title , , - ", []query.SortField{{Field: "Title"}}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := query.ParseSortFields(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
