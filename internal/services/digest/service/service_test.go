package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/modkit"
	"replywatch/internal/platform/store"
	"replywatch/internal/services/digest/domain"
)

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val.(int64)
	return nil
}

type matchRows struct {
	rows []domain.Match
	idx  int
}

func (m *matchRows) Next() bool { return m.idx < len(m.rows) }

func (m *matchRows) Scan(dest ...any) error {
	r := m.rows[m.idx]
	m.idx++
	*(dest[0].(*int64)) = r.CommentID
	*(dest[1].(*int64)) = r.TS
	*(dest[2].(*json.RawMessage)) = r.Payload
	*(dest[3].(*string)) = r.SubscriptionID
	*(dest[4].(*string)) = r.AuthorName
	*(dest[5].(*string)) = r.Email
	return nil
}

func (m *matchRows) Err() error { return nil }
func (m *matchRows) Close()     {}

type fakeTag struct{}

func (fakeTag) String() string      { return "" }
func (fakeTag) RowsAffected() int64 { return 1 }

type fakeQuerier struct {
	cursor     int64
	hasCursor  bool
	maxTS      int64
	matches    []domain.Match
	advancedTo []int64
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO digest_cursor"):
		if !f.hasCursor {
			f.hasCursor = true
			f.cursor = args[0].(int64)
		}
	case strings.Contains(sql, "UPDATE digest_cursor"):
		f.cursor = args[0].(int64)
		f.advancedTo = append(f.advancedTo, f.cursor)
	default:
		return nil, fmt.Errorf("unexpected exec: %s", sql)
	}
	return fakeTag{}, nil
}

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (store.Rows, error) {
	if !strings.Contains(sql, "JOIN subscriptions") {
		return nil, fmt.Errorf("unexpected query: %s", sql)
	}
	since := args[0].(int64)
	var due []domain.Match
	for _, m := range f.matches {
		if m.TS > since {
			due = append(due, m)
		}
	}
	return &matchRows{rows: due}, nil
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) store.Row {
	switch {
	case strings.Contains(sql, "FROM digest_cursor"):
		return fakeRow{val: f.cursor}
	case strings.Contains(sql, "coalesce(max(ts)"):
		return fakeRow{val: f.maxTS}
	default:
		return fakeRow{err: fmt.Errorf("unexpected query row: %s", sql)}
	}
}

type fakeTx struct{ q *fakeQuerier }

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

func (f *fakeTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error { return fn(f.q) }

func payload(author, rendered string) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{
		"author_name": author,
		"content":     map[string]string{"rendered": rendered},
	})
	return raw
}

func newSvc(q *fakeQuerier, sender mail.Sender) *Svc {
	s := New(modkit.Deps{PG: &fakeTx{q: q}}, sender, Config{PublicURL: "https://example.test"})
	s.now = func() time.Time { return time.Unix(1000, 0) }
	return s
}

func TestRunOnceSendsMatchedCommentsAndAdvancesCursor(t *testing.T) {
	q := &fakeQuerier{
		hasCursor: true,
		cursor:    100,
		maxTS:     0,
		matches: []domain.Match{
			{
				CommentID: 1, TS: 150,
				Payload:        payload("Replier", "<p>matched reply</p>"),
				SubscriptionID: "sub-1", AuthorName: "Alice", Email: "alice@example.test",
			},
		},
	}
	// an unrelated newer comment moves max ts past the match
	q.maxTS = 200

	sender := &mail.Mock{}
	require.NoError(t, newSvc(q, sender).RunOnce(context.Background()))

	// cursor lands on the newest stored comment, matched or not
	require.Equal(t, []int64{200}, q.advancedTo)

	// the digest itself still carries only the matched comment
	sent := sender.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "alice@example.test", sent[0].To)
	require.Contains(t, sent[0].HTML, "matched reply")
	require.Contains(t, sent[0].HTML, "/unsubscribe?email=alice%40example.test&amp;id=sub-1")
}

func TestRunOnceZeroSubscriptionsAdvancesWithoutMail(t *testing.T) {
	q := &fakeQuerier{hasCursor: true, cursor: 100, maxTS: 300}

	sender := &mail.Mock{}
	require.NoError(t, newSvc(q, sender).RunOnce(context.Background()))

	require.Equal(t, []int64{300}, q.advancedTo)
	require.Empty(t, sender.Sent())
}

func TestRunOnceCursorNeverDecreases(t *testing.T) {
	// everything stored is older than the cursor
	q := &fakeQuerier{hasCursor: true, cursor: 500, maxTS: 200}

	sender := &mail.Mock{}
	require.NoError(t, newSvc(q, sender).RunOnce(context.Background()))

	require.Empty(t, q.advancedTo)
	require.Equal(t, int64(500), q.cursor)
}

func TestRunOnceSeedsCursorOnFirstRun(t *testing.T) {
	q := &fakeQuerier{hasCursor: false, maxTS: 0}

	sender := &mail.Mock{}
	require.NoError(t, newSvc(q, sender).RunOnce(context.Background()))

	// seeded at now, not at epoch: historic comments are not re-announced
	require.True(t, q.hasCursor)
	require.Equal(t, int64(1000), q.cursor)
	require.Empty(t, sender.Sent())
}

func TestRunOnceSendFailureDoesNotRollCursorBack(t *testing.T) {
	q := &fakeQuerier{
		hasCursor: true,
		cursor:    0,
		matches: []domain.Match{
			{
				CommentID: 2, TS: 50,
				Payload:        payload("Replier", "<p>x</p>"),
				SubscriptionID: "sub-2", AuthorName: "Bob", Email: "bob@example.test",
			},
		},
	}

	sender := &mail.Mock{Err: fmt.Errorf("provider down")}
	require.NoError(t, newSvc(q, sender).RunOnce(context.Background()))

	require.Equal(t, []int64{50}, q.advancedTo)
}

func TestRunOnceGroupsPerRecipient(t *testing.T) {
	q := &fakeQuerier{
		hasCursor: true,
		cursor:    0,
		matches: []domain.Match{
			{CommentID: 1, TS: 10, Payload: payload("R1", "<p>a</p>"),
				SubscriptionID: "s1", AuthorName: "Alice", Email: "alice@example.test"},
			{CommentID: 2, TS: 20, Payload: payload("R2", "<p>b</p>"),
				SubscriptionID: "s2", AuthorName: "Bob", Email: "bob@example.test"},
			{CommentID: 3, TS: 30, Payload: payload("R3", "<p>c</p>"),
				SubscriptionID: "s1", AuthorName: "Alice", Email: "alice@example.test"},
		},
	}

	sender := &mail.Mock{}
	require.NoError(t, newSvc(q, sender).RunOnce(context.Background()))

	sent := sender.Sent()
	require.Len(t, sent, 2)
	require.Equal(t, "alice@example.test", sent[0].To)
	require.Contains(t, sent[0].HTML, "<p>a</p>")
	require.Contains(t, sent[0].HTML, "<p>c</p>")
	require.NotContains(t, sent[0].HTML, "<p>b</p>")
	// one unsubscribe link for the single subscription behind both matches
	require.Equal(t, 1, strings.Count(sent[0].HTML, "/unsubscribe?"))
}
