package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/modkit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/store"
	"replywatch/internal/services/subscriptions/domain"
)

type fakeTag struct{}

func (fakeTag) String() string      { return "" }
func (fakeTag) RowsAffected() int64 { return 1 }

type tokenRow struct {
	t   domain.Token
	err error
}

func (r tokenRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.t.ID
	*(dest[1].(*string)) = r.t.Email
	*(dest[2].(*int64)) = r.t.Expiration
	return nil
}

type fakeQuerier struct {
	tokens map[string]domain.Token
	subs   map[string]string // "email|author" -> sub id
	purged []int64
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (store.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO tokens"):
		f.tokens[args[0].(string)] = domain.Token{
			ID: args[0].(string), Email: args[1].(string), Expiration: args[2].(int64),
		}
	case strings.Contains(sql, "DELETE FROM tokens WHERE expiration"):
		now := args[0].(int64)
		f.purged = append(f.purged, now)
		for id, t := range f.tokens {
			if t.Expiration < now {
				delete(f.tokens, id)
			}
		}
	case strings.Contains(sql, "DELETE FROM tokens WHERE id"):
		delete(f.tokens, args[0].(string))
	case strings.Contains(sql, "INSERT INTO subscriptions"):
		key := args[0].(string) + "|" + args[1].(string)
		if _, dup := f.subs[key]; !dup {
			f.subs[key] = uuid.NewString()
		}
	case strings.Contains(sql, "DELETE FROM subscriptions"):
		id, email := args[0].(string), args[1].(string)
		for key, sid := range f.subs {
			if sid == id && strings.HasPrefix(key, email+"|") {
				delete(f.subs, key)
			}
		}
	default:
		return nil, fmt.Errorf("unexpected exec: %s", sql)
	}
	return fakeTag{}, nil
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, fmt.Errorf("unexpected query")
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) store.Row {
	if strings.Contains(sql, "FROM tokens") {
		t, ok := f.tokens[args[0].(string)]
		if !ok {
			return tokenRow{err: pgx.ErrNoRows}
		}
		return tokenRow{t: t}
	}
	return tokenRow{err: fmt.Errorf("unexpected query row: %s", sql)}
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
func (f *fakeTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error   { return fn(f.q) }

func newTestSvc(q *fakeQuerier, sender mail.Sender) *Svc {
	s := New(modkit.Deps{PG: &fakeTx{q: q}}, sender, Config{
		PublicURL: "https://example.test",
	})
	s.now = func() time.Time { return time.Unix(5000, 0) }
	return s
}

func TestSendVerificationMintsTokenAndMailsLink(t *testing.T) {
	q := &fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}
	sender := &mail.Mock{}
	s := newTestSvc(q, sender)

	err := s.SendVerification(context.Background(), "10.0.0.1", domain.SendRequest{
		AuthorName: "Alice", Email: "alice@example.test",
	})
	require.NoError(t, err)

	require.Len(t, q.tokens, 1)
	var tok domain.Token
	for _, v := range q.tokens {
		tok = v
	}
	require.Equal(t, "alice@example.test", tok.Email)
	require.Equal(t, time.Unix(5000, 0).Add(24*time.Hour).Unix(), tok.Expiration)

	sent := sender.Sent()
	require.Len(t, sent, 1)
	require.Equal(t, "alice@example.test", sent[0].To)
	require.Contains(t, sent[0].HTML, "/verify?author_name=Alice&amp;token="+tok.ID)

	// expired tokens were purged in the same transaction
	require.Equal(t, []int64{5000}, q.purged)
}

func TestSendVerificationRateLimited(t *testing.T) {
	q := &fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}
	sender := &mail.Mock{}
	s := newTestSvc(q, sender)

	for i := range 10 {
		err := s.SendVerification(context.Background(), "10.9.9.9", domain.SendRequest{
			AuthorName: "Alice", Email: fmt.Sprintf("u%d@example.test", i),
		})
		if i < 5 {
			require.NoError(t, err)
			continue
		}
		require.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable))
	}
}

func TestSendVerificationSuppressedResendStillSucceeds(t *testing.T) {
	q := &fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}
	sender := &mail.Mock{}
	s := newTestSvc(q, sender)

	req := domain.SendRequest{AuthorName: "Alice", Email: "alice@example.test"}
	require.NoError(t, s.SendVerification(context.Background(), "10.0.0.1", req))
	// immediate resend from a fresh address is within the hold window
	require.NoError(t, s.SendVerification(context.Background(), "10.0.0.2", req))

	require.Len(t, sender.Sent(), 1)
	require.Len(t, q.tokens, 1)
}

func TestVerifyRedeemsTokenOnce(t *testing.T) {
	q := &fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}
	s := newTestSvc(q, &mail.Mock{})

	id := uuid.NewString()
	q.tokens[id] = domain.Token{ID: id, Email: "alice@example.test", Expiration: 9000}

	require.NoError(t, s.Verify(context.Background(), "Bob", id))
	require.Empty(t, q.tokens)
	require.Len(t, q.subs, 1)
	_, ok := q.subs["alice@example.test|Bob"]
	require.True(t, ok)

	// second redemption fails: the token is gone
	err := s.Verify(context.Background(), "Bob", id)
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
}

func TestVerifyExpiredToken(t *testing.T) {
	q := &fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}
	s := newTestSvc(q, &mail.Mock{})

	id := uuid.NewString()
	q.tokens[id] = domain.Token{ID: id, Email: "alice@example.test", Expiration: 4000}

	err := s.Verify(context.Background(), "Bob", id)
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
	require.Empty(t, q.subs)
	require.Empty(t, q.tokens)
}

func TestVerifyMalformedToken(t *testing.T) {
	s := newTestSvc(&fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}, &mail.Mock{})
	err := s.Verify(context.Background(), "Bob", "not-a-uuid")
	require.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	q := &fakeQuerier{tokens: map[string]domain.Token{}, subs: map[string]string{}}
	s := newTestSvc(q, &mail.Mock{})

	subID := uuid.NewString()
	q.subs["alice@example.test|Bob"] = subID

	require.NoError(t, s.Unsubscribe(context.Background(), subID, "alice@example.test"))
	require.Empty(t, q.subs)

	// removing again is still a success
	require.NoError(t, s.Unsubscribe(context.Background(), subID, "alice@example.test"))
}
