package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"replywatch/internal/modkit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/store"
	"replywatch/internal/services/replies/domain"
)

type fakeRows struct {
	payloads []json.RawMessage
	idx      int
}

func (r *fakeRows) Next() bool { r.idx++; return r.idx <= len(r.payloads) }
func (r *fakeRows) Scan(dest ...any) error {
	*(dest[0].(*json.RawMessage)) = r.payloads[r.idx-1]
	return nil
}
func (r *fakeRows) Err() error { return nil }
func (r *fakeRows) Close()     {}

type fakeQuerier struct {
	payloads []json.RawMessage
	args     []any
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, fmt.Errorf("unexpected exec")
}

func (f *fakeQuerier) Query(_ context.Context, _ string, args ...any) (store.Rows, error) {
	f.args = args
	return &fakeRows{payloads: f.payloads}, nil
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) store.Row { return nil }

type fakeRunner struct{ q *fakeQuerier }

func (f *fakeRunner) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return f.q.Exec(ctx, sql, args...)
}

func (f *fakeRunner) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return f.q.Query(ctx, sql, args...)
}

func (f *fakeRunner) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	return f.q.QueryRow(ctx, sql, args...)
}

func (f *fakeRunner) Conn(_ context.Context, fn func(store.RowQuerier) error) error { return fn(f.q) }
func (f *fakeRunner) Tx(_ context.Context, fn func(store.RowQuerier) error) error   { return fn(f.q) }

func TestRepliesDefaultsAndPassthrough(t *testing.T) {
	q := &fakeQuerier{payloads: []json.RawMessage{
		json.RawMessage(`{"id":1}`),
		json.RawMessage(`{"id":2}`),
	}}
	s := New(modkit.Deps{PG: &fakeRunner{q: q}})

	out, err := s.Replies(context.Background(), domain.Query{AuthorName: "Alice", From: 100})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.JSONEq(t, `{"id":1}`, string(out[0]))

	// defaults: page 1, page size 100, offset 0
	require.Equal(t, []any{"Alice", int64(100), 100, 0}, q.args)
}

func TestRepliesPagination(t *testing.T) {
	q := &fakeQuerier{}
	s := New(modkit.Deps{PG: &fakeRunner{q: q}})

	_, err := s.Replies(context.Background(), domain.Query{
		AuthorName: "Alice", From: 100, Page: 3, PageSize: 25,
	})
	require.NoError(t, err)
	require.Equal(t, []any{"Alice", int64(100), 25, 50}, q.args)
}

func TestRepliesEmptyResultIsEmptyArray(t *testing.T) {
	s := New(modkit.Deps{PG: &fakeRunner{q: &fakeQuerier{}}})

	out, err := s.Replies(context.Background(), domain.Query{AuthorName: "Alice"})
	require.NoError(t, err)
	require.NotNil(t, out)
	require.Empty(t, out)

	body, err := json.Marshal(out)
	require.NoError(t, err)
	require.Equal(t, "[]", string(body))
}

func TestRepliesValidation(t *testing.T) {
	s := New(modkit.Deps{PG: &fakeRunner{q: &fakeQuerier{}}})

	_, err := s.Replies(context.Background(), domain.Query{From: 100})
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	_, err = s.Replies(context.Background(), domain.Query{AuthorName: "Alice", From: -1})
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	_, err = s.Replies(context.Background(), domain.Query{AuthorName: "Alice", PageSize: 501})
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
}
