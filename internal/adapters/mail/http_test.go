package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	perr "replywatch/internal/platform/errors"
)

func TestSendPostsForm(t *testing.T) {
	var gotAuth string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"from":    r.PostFormValue("from"),
			"to":      r.PostFormValue("to"),
			"subject": r.PostFormValue("subject"),
			"html":    r.PostFormValue("html"),
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPOptions{URL: srv.URL, APIKey: "k", From: "noreply@example.test"})
	err := s.Send(context.Background(), Message{
		To:      "alice@example.test",
		Subject: "new replies",
		HTML:    "<p>hi</p>",
	})
	require.NoError(t, err)
	require.Equal(t, "Bearer k", gotAuth)
	require.Equal(t, "noreply@example.test", gotForm["from"])
	require.Equal(t, "alice@example.test", gotForm["to"])
	require.Equal(t, "new replies", gotForm["subject"])
	require.Equal(t, "<p>hi</p>", gotForm["html"])
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPOptions{URL: srv.URL, Attempts: 5})
	// shrink delays so the test stays fast
	s.http.Timeout = 5 * time.Second

	err := s.Send(context.Background(), Message{To: "a@b.test"})
	require.NoError(t, err)
	require.Equal(t, int32(3), calls.Load())
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	s := NewHTTPSender(HTTPOptions{URL: srv.URL, Attempts: 5})
	err := s.Send(context.Background(), Message{To: "a@b.test"})
	require.Error(t, err)
	require.True(t, perr.IsCode(err, perr.ErrorCodeMailTransport))
	require.Equal(t, int32(1), calls.Load())
}
