package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"replywatch/internal/adapters/source/wordpress"
	"replywatch/internal/bridge"
	"replywatch/internal/modkit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/store"
)

type insertedRow struct {
	id        int64
	ts        int64
	inReplyTo []string
}

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *int64:
		*d = r.val.(int64)
	case *string:
		*d = r.val.(string)
	default:
		panic("unsupported dest")
	}
	return nil
}

type fakeTag struct{}

func (fakeTag) String() string      { return "" }
func (fakeTag) RowsAffected() int64 { return 1 }

// fakeQuerier answers the ingest repo statements from memory
type fakeQuerier struct {
	watermark     int64
	storedAuthors map[int64]string
	ops           []string
	inserts       []insertedRow
	authorLookups int
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	switch {
	case strings.Contains(sql, "pg_advisory_xact_lock"):
		f.ops = append(f.ops, "lock")
	case strings.Contains(sql, "INSERT INTO comments"):
		f.ops = append(f.ops, "insert")
		f.inserts = append(f.inserts, insertedRow{
			id:        args[0].(int64),
			ts:        args[2].(int64),
			inReplyTo: args[3].([]string),
		})
	default:
		return nil, fmt.Errorf("unexpected exec: %s", sql)
	}
	return fakeTag{}, nil
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, fmt.Errorf("unexpected query")
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	switch {
	case strings.Contains(sql, "coalesce(max(ts)"):
		f.ops = append(f.ops, "watermark")
		return fakeRow{val: f.watermark}
	case strings.Contains(sql, "author_name"):
		f.authorLookups++
		name, ok := f.storedAuthors[args[0].(int64)]
		if !ok {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{val: name}
	default:
		return fakeRow{err: fmt.Errorf("unexpected query row: %s", sql)}
	}
}

// fakeTx runs the transaction body against the fake querier and records outcome
type fakeTx struct {
	q          *fakeQuerier
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (store.CommandTag, error) {
	return f.q.Exec(ctx, sql, args...)
}

func (f *fakeTx) Query(ctx context.Context, sql string, args ...any) (store.Rows, error) {
	return f.q.Query(ctx, sql, args...)
}

func (f *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) store.Row {
	return f.q.QueryRow(ctx, sql, args...)
}

func (f *fakeTx) Conn(_ context.Context, fn func(store.RowQuerier) error) error { return fn(f.q) }

func (f *fakeTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error {
	if err := fn(f.q); err != nil {
		f.rolledBack = true
		return err
	}
	f.committed = true
	return nil
}

// fakeSource serves scripted pages through bridge cells
type fakeSource struct {
	pages [][]wordpress.Comment
}

func (f *fakeSource) PageAsync(_ context.Context, page int, _ time.Time) *bridge.Cell[[]wordpress.Comment] {
	c := bridge.NewCell[[]wordpress.Comment]()
	if page-1 < len(f.pages) {
		c.Succeed(f.pages[page-1])
	} else {
		c.Succeed(nil)
	}
	return c
}

func mkComment(id int64, author string, parent int64, ts int64, html string) wordpress.Comment {
	raw, _ := json.Marshal(map[string]any{"id": id, "author_name": author, "parent": parent})
	return wordpress.Comment{ID: id, AuthorName: author, Parent: parent, TS: ts, HTML: html, Raw: raw}
}

func newSvc(t *testing.T, tx *fakeTx, src Source) *Svc {
	t.Helper()
	return New(modkit.Deps{PG: tx}, src, Config{MaxPages: 10, PageTimeout: time.Second})
}

func TestRunOnceCommitsAllPagesInOneTransaction(t *testing.T) {
	q := &fakeQuerier{watermark: 100, storedAuthors: map[int64]string{}}
	tx := &fakeTx{q: q}
	src := &fakeSource{pages: [][]wordpress.Comment{
		{mkComment(1, "Alice", 0, 110, "first"), mkComment(2, "Bob", 1, 120, "reply")},
		{mkComment(3, "Carol", 0, 130, "hi @Alice")},
		{mkComment(4, "Dan", 0, 140, "late to the thread")},
		{}, // exhausted
	}}

	err := newSvc(t, tx, src).RunOnce(context.Background())
	require.NoError(t, err)
	require.True(t, tx.committed)

	require.Len(t, q.inserts, 4)
	require.Equal(t, int64(140), q.inserts[3].ts)

	// the lock is taken before the watermark is read
	require.Equal(t, "lock", q.ops[0])
	require.Equal(t, "watermark", q.ops[1])

	// parent author resolved from the in-run cache, not sql
	require.Equal(t, []string{"Alice"}, q.inserts[1].inReplyTo)
	// mention resolved from body
	require.Equal(t, []string{"Alice"}, q.inserts[2].inReplyTo)
}

func TestRunOnceOrderingRegressionRollsBack(t *testing.T) {
	q := &fakeQuerier{watermark: 0, storedAuthors: map[int64]string{}}
	tx := &fakeTx{q: q}
	src := &fakeSource{pages: [][]wordpress.Comment{
		{mkComment(1, "Alice", 0, 200, "a"), mkComment(2, "Bob", 0, 210, "b")},
		{mkComment(3, "Carol", 0, 150, "regressed")},
	}}

	err := newSvc(t, tx, src).RunOnce(context.Background())
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeOrdering))
	require.True(t, tx.rolledBack)
	require.False(t, tx.committed)
}

func TestRunOnceResolvesParentFromStore(t *testing.T) {
	q := &fakeQuerier{watermark: 500, storedAuthors: map[int64]string{7: "Dave"}}
	tx := &fakeTx{q: q}
	src := &fakeSource{pages: [][]wordpress.Comment{
		{mkComment(8, "Erin", 7, 510, "answer")},
	}}

	err := newSvc(t, tx, src).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Dave"}, q.inserts[0].inReplyTo)
}

func TestRunOnceMemoizesStoreParentLookups(t *testing.T) {
	q := &fakeQuerier{watermark: 500, storedAuthors: map[int64]string{7: "Dave"}}
	tx := &fakeTx{q: q}
	src := &fakeSource{pages: [][]wordpress.Comment{
		{
			mkComment(8, "Erin", 7, 510, "answer"),
			mkComment(9, "Frank", 7, 520, "same thread"),
		},
	}}

	err := newSvc(t, tx, src).RunOnce(context.Background())
	require.NoError(t, err)

	// sibling replies to one stored parent hit sql once, the cache after
	require.Equal(t, 1, q.authorLookups)
	require.Equal(t, []string{"Dave"}, q.inserts[0].inReplyTo)
	require.Equal(t, []string{"Dave"}, q.inserts[1].inReplyTo)

	// an unknown parent is memoized too
	q2 := &fakeQuerier{watermark: 0, storedAuthors: map[int64]string{}}
	tx2 := &fakeTx{q: q2}
	src2 := &fakeSource{pages: [][]wordpress.Comment{
		{
			mkComment(10, "Gail", 4242, 10, "orphan"),
			mkComment(11, "Hugh", 4242, 20, "orphan too"),
		},
	}}
	require.NoError(t, newSvc(t, tx2, src2).RunOnce(context.Background()))
	require.Equal(t, 1, q2.authorLookups)
}

func TestRunOnceUnknownParentContributesNothing(t *testing.T) {
	q := &fakeQuerier{watermark: 0, storedAuthors: map[int64]string{}}
	tx := &fakeTx{q: q}
	src := &fakeSource{pages: [][]wordpress.Comment{
		{mkComment(9, "Frank", 4242, 10, "orphan reply @Grace,")},
	}}

	err := newSvc(t, tx, src).RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"Grace"}, q.inserts[0].inReplyTo)
}

func TestRunOnceSourceFailureAbortsRun(t *testing.T) {
	q := &fakeQuerier{watermark: 0, storedAuthors: map[int64]string{}}
	tx := &fakeTx{q: q}

	failing := sourceFunc(func(_ context.Context, _ int, _ time.Time) *bridge.Cell[[]wordpress.Comment] {
		c := bridge.NewCell[[]wordpress.Comment]()
		c.Fail(perr.SourceFetchf("upstream down"))
		return c
	})

	err := newSvc(t, tx, failing).RunOnce(context.Background())
	require.True(t, perr.IsCode(err, perr.ErrorCodeSourceFetch))
	require.True(t, tx.rolledBack)
}

type sourceFunc func(ctx context.Context, page int, after time.Time) *bridge.Cell[[]wordpress.Comment]

func (f sourceFunc) PageAsync(ctx context.Context, page int, after time.Time) *bridge.Cell[[]wordpress.Comment] {
	return f(ctx, page, after)
}
