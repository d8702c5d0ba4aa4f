// Package http provides the subscription endpoints
package http

import (
	"net/http"

	"replywatch/internal/modkit/httpkit"
	pnet "replywatch/internal/platform/net"
	"replywatch/internal/services/subscriptions/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Svc domain.SubscribePort
}

type handlers struct {
	deps Deps
}

// Register mounts the subscription routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}

	httpkit.PostJSON(r, "/send", h.send)
	r.Get("/verify", httpkit.Handle(h.verify))
	r.Get("/unsubscribe", httpkit.Handle(h.unsubscribe))
}

// send requests a verification email for an author/email pair.
// A rapid resend for the same address is silently accepted
func (h *handlers) send(r *http.Request, req domain.SendRequest) (any, error) {
	ip := pnet.ClientIP(r)
	if err := h.deps.Svc.SendVerification(r.Context(), ip, req); err != nil {
		return nil, err
	}
	return map[string]string{"status": "sent"}, nil
}

// verify redeems a single-use token from the emailed link
func (h *handlers) verify(r *http.Request) httpkit.Response {
	q := r.URL.Query()
	if err := h.deps.Svc.Verify(r.Context(), q.Get("author_name"), q.Get("token")); err != nil {
		return httpkit.Error(err)
	}
	return httpkit.Text(http.StatusOK, "Subscription confirmed. You can close this page.\n")
}

// unsubscribe removes one subscription from a digest footer link
func (h *handlers) unsubscribe(r *http.Request) httpkit.Response {
	q := r.URL.Query()
	if err := h.deps.Svc.Unsubscribe(r.Context(), q.Get("id"), q.Get("email")); err != nil {
		return httpkit.Error(err)
	}
	return httpkit.Text(http.StatusOK, "You will no longer receive reply digests for this subscription.\n")
}
