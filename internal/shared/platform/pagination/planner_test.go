package pagination_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	shared "github.com/davicafu/postlab/internal/shared/domain"
	"github.com/davicafu/postlab/internal/shared/infra/platform/db/memory"
	"github.com/davicafu/postlab/internal/shared/platform/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID        int64
	Title     string
	CreatedAt time.Time
}

var schema = pagination.Schema[record]{
	ID: pagination.Field[record]{Name: "id", Column: "id", Kind: pagination.KindNumber,
		Value: func(r record) pagination.Value { return pagination.Int(r.ID) }},
	Fields: []pagination.Field[record]{
		{Name: "createdAt", Column: "created_at", Kind: pagination.KindTimestamp,
			Value: func(r record) pagination.Value { return pagination.Timestamp(r.CreatedAt) }},
		{Name: "title", Column: "title", Kind: pagination.KindString,
			Value: func(r record) pagination.Value { return pagination.String(r.Title) }},
	},
}

func column(r record, field string) (interface{}, bool) {
	switch field {
	case "id":
		return r.ID, true
	case "title":
		return r.Title, true
	case "created_at":
		return r.CreatedAt, true
	}
	return nil, false
}

func fetcherOver(rows []record) pagination.Fetcher[record] {
	return func(_ context.Context, q pagination.QuerySpec) ([]record, error) {
		return memory.Query(append([]record(nil), rows...), q, column)
	}
}

func ids(rs []record) []int64 {
	out := make([]int64, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func seq(from, to int64) []int64 {
	var out []int64
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestPaginate_TiesOnCreatedAtAscending(t *testing.T) {
	T := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var rows []record
	for i := int64(25); i >= 1; i-- {
		rows = append(rows, record{ID: i, Title: "p", CreatedAt: T})
	}
	planner := pagination.MustPlanner(schema)
	fetch := fetcherOver(rows)
	ctx := context.Background()
	req := pagination.Request{Limit: 10, SortBy: "createdAt", SortOrder: pagination.ASC}

	page1, err := planner.Paginate(ctx, req, nil, fetch)
	require.NoError(t, err)
	assert.Equal(t, seq(1, 10), ids(page1.Items))
	require.NotNil(t, page1.NextCursor)

	cur, err := pagination.DecodeCursor(*page1.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, "createdAt", cur.SortBy)
	assert.True(t, pagination.Int(T.UnixMilli()).Equal(cur.Value))
	assert.True(t, pagination.Int(10).Equal(cur.ID))

	req.Cursor = *page1.NextCursor
	page2, err := planner.Paginate(ctx, req, nil, fetch)
	require.NoError(t, err)
	assert.Equal(t, seq(11, 20), ids(page2.Items))
	require.NotNil(t, page2.NextCursor)

	req.Cursor = *page2.NextCursor
	page3, err := planner.Paginate(ctx, req, nil, fetch)
	require.NoError(t, err)
	assert.Equal(t, seq(21, 25), ids(page3.Items))
	assert.Nil(t, page3.NextCursor)
}

func TestPaginate_VisitsEveryRecordOnce(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var rows []record
	for i := int64(1); i <= 47; i++ {
		// grupos de empates en createdAt y en title
		rows = append(rows, record{
			ID:        i,
			Title:     fmt.Sprintf("t%d", i%4),
			CreatedAt: base.Add(time.Duration(i%5) * time.Minute),
		})
	}
	planner := pagination.MustPlanner(schema)
	fetch := fetcherOver(rows)

	for _, sortBy := range []string{"createdAt", "title", "id"} {
		for _, dir := range []pagination.Direction{pagination.ASC, pagination.DESC} {
			for _, limit := range []int{1, 3, 10, 47, 100} {
				t.Run(fmt.Sprintf("%s_%s_%d", sortBy, dir, limit), func(t *testing.T) {
					expected, err := memory.Query(append([]record(nil), rows...), pagination.QuerySpec{
						Order: []pagination.Order{{Field: map[string]string{"createdAt": "created_at", "title": "title", "id": "id"}[sortBy], Direction: dir}, {Field: "id", Direction: dir}},
					}, column)
					require.NoError(t, err)

					req := pagination.Request{SortBy: sortBy, SortOrder: dir, Limit: limit}
					var seen []int64
					for calls := 0; calls < 100; calls++ {
						page, err := planner.Paginate(context.Background(), req, nil, fetch)
						require.NoError(t, err)
						assert.LessOrEqual(t, len(page.Items), limit)
						seen = append(seen, ids(page.Items)...)
						if page.NextCursor == nil {
							break
						}
						req.Cursor = *page.NextCursor
					}
					assert.Equal(t, ids(expected), seen)
				})
			}
		}
	}
}

func TestPaginate_BoundaryIsExclusive(t *testing.T) {
	T := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []record{
		{ID: 1, CreatedAt: T.Add(2 * time.Second)},
		{ID: 2, CreatedAt: T.Add(time.Second)},
		{ID: 3, CreatedAt: T.Add(time.Second)},
		{ID: 4, CreatedAt: T},
	}
	planner := pagination.MustPlanner(schema)
	token, err := pagination.EncodeCursor(pagination.Cursor{
		Value: pagination.Int(T.Add(time.Second).UnixMilli()), ID: pagination.Int(3), SortBy: "createdAt",
	})
	require.NoError(t, err)

	page, err := planner.Paginate(context.Background(), pagination.Request{Cursor: token}, nil, fetcherOver(rows))
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, ids(page.Items))
	assert.Nil(t, page.NextCursor)
}

func TestPaginate_EmptyResult(t *testing.T) {
	planner := pagination.MustPlanner(schema)

	page, err := planner.Paginate(context.Background(), pagination.Request{}, nil, fetcherOver(nil))
	require.NoError(t, err)

	raw, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"nextCursor":null}`, string(raw))
}

func TestPaginate_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	planner := pagination.MustPlanner(schema)

	_, err := planner.Paginate(context.Background(), pagination.Request{}, nil,
		func(context.Context, pagination.QuerySpec) ([]record, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, pagination.Code(err))
}

func TestBuildQuery_NoCursor(t *testing.T) {
	planner := pagination.MustPlanner(schema)
	base := shared.Criterion{Field: "title", Op: shared.OpEq, Value: "x"}

	q, err := planner.BuildQuery(pagination.Request{}, base)
	require.NoError(t, err)
	assert.Equal(t, base, q.Filter)
	assert.Equal(t, 11, q.Limit)
	assert.Equal(t, []pagination.Order{
		{Field: "created_at", Direction: pagination.DESC},
		{Field: "id", Direction: pagination.DESC},
	}, q.Order)
}

func TestBuildQuery_CompositeBoundary(t *testing.T) {
	planner := pagination.MustPlanner(schema)
	T := time.UnixMilli(1700000000000).UTC()
	token, err := pagination.EncodeCursor(pagination.Cursor{Value: pagination.Int(T.UnixMilli()), ID: pagination.Int(7), SortBy: "createdAt"})
	require.NoError(t, err)
	base := shared.Criterion{Field: "title", Op: shared.OpEq, Value: "x"}

	q, err := planner.BuildQuery(pagination.Request{Cursor: token, Limit: 5}, base)
	require.NoError(t, err)
	assert.Equal(t, 6, q.Limit)

	expected := shared.CompositeCriteria{Operator: shared.OpAnd, Criterias: []shared.Criteria{
		base,
		shared.CompositeCriteria{Operator: shared.OpOr, Criterias: []shared.Criteria{
			shared.Criterion{Field: "created_at", Op: shared.OpLt, Value: T},
			shared.CompositeCriteria{Operator: shared.OpAnd, Criterias: []shared.Criteria{
				shared.Criterion{Field: "created_at", Op: shared.OpEq, Value: T},
				shared.Criterion{Field: "id", Op: shared.OpLt, Value: int64(7)},
			}},
		}},
	}}
	assert.Equal(t, expected, q.Filter)
}

func TestBuildQuery_Errors(t *testing.T) {
	planner := pagination.MustPlanner(schema)
	createdAtCursor, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.Int(1), ID: pagination.Int(1), SortBy: "createdAt"})
	stringOnTime, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.String("x"), ID: pagination.Int(1), SortBy: "createdAt"})
	stringID, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.String("x"), ID: pagination.String("abc"), SortBy: "title"})
	hugeID, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.Int(1), ID: pagination.Number("99999999999999999999"), SortBy: "createdAt"})
	fractionalID, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.String("x"), ID: pagination.Number("1.5"), SortBy: "title"})
	farTimestamp, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.Number("1.5e18"), ID: pagination.Int(1), SortBy: "createdAt"})
	hugeTimestamp, _ := pagination.EncodeCursor(pagination.Cursor{Value: pagination.Int(9_000_000_000_000_000), ID: pagination.Int(1), SortBy: "createdAt"})

	tests := []struct {
		name string
		req  pagination.Request
		err  error
		code string
	}{
		{name: "cursor malformado", req: pagination.Request{Cursor: "not-base64!!"}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "cursor de otro sortBy", req: pagination.Request{Cursor: createdAtCursor, SortBy: "title"}, err: pagination.ErrCursorMismatch, code: "CURSOR_MISMATCH"},
		{name: "campo desconocido", req: pagination.Request{SortBy: "password"}, err: pagination.ErrInvalidSortField, code: "INVALID_SORT_FIELD"},
		{name: "valor de tipo incorrecto", req: pagination.Request{Cursor: stringOnTime}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "id de tipo incorrecto", req: pagination.Request{Cursor: stringID, SortBy: "title"}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "id fuera de int64", req: pagination.Request{Cursor: hugeID}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "id con decimales", req: pagination.Request{Cursor: fractionalID, SortBy: "title"}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "timestamp con exponente", req: pagination.Request{Cursor: farTimestamp}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "timestamp fuera de rango", req: pagination.Request{Cursor: hugeTimestamp}, err: pagination.ErrInvalidCursor, code: "INVALID_CURSOR"},
		{name: "limit negativo", req: pagination.Request{Limit: -1}, err: pagination.ErrInvalidLimit, code: "INVALID_PAGINATION"},
		{name: "limit fuera de rango", req: pagination.Request{Limit: 1001}, err: pagination.ErrInvalidLimit, code: "INVALID_PAGINATION"},
		{name: "orden desconocido", req: pagination.Request{SortOrder: "UP"}, err: pagination.ErrInvalidSortOrder, code: "INVALID_PAGINATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := planner.BuildQuery(tt.req, nil)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.code, pagination.Code(err))
		})
	}
}

func TestBuildPage_CursorFromLastKeptItem(t *testing.T) {
	planner := pagination.MustPlanner(schema)
	batch := []record{{ID: 1, Title: "a"}, {ID: 2, Title: "b"}, {ID: 3, Title: "c"}}

	page, err := planner.BuildPage(pagination.Request{SortBy: "title", SortOrder: pagination.ASC, Limit: 2}, batch)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids(page.Items))
	require.NotNil(t, page.NextCursor)

	cur, err := pagination.DecodeCursor(*page.NextCursor)
	require.NoError(t, err)
	assert.True(t, pagination.String("b").Equal(cur.Value))
	assert.True(t, pagination.Int(2).Equal(cur.ID))
	assert.Equal(t, "title", cur.SortBy)
}

func TestBuildPage_ExactLimitHasNoCursor(t *testing.T) {
	planner := pagination.MustPlanner(schema)

	page, err := planner.BuildPage(pagination.Request{Limit: 2}, []record{{ID: 1}, {ID: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.False(t, page.HasMore())
}

func TestNewPlanner_RejectsBadSchema(t *testing.T) {
	bad := schema
	bad.DefaultSort = "nope"
	_, err := pagination.NewPlanner(bad)
	assert.Error(t, err)

	noAccessor := schema
	noAccessor.ID.Value = nil
	_, err = pagination.NewPlanner(noAccessor)
	assert.Error(t, err)
}
