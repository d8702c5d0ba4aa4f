// Package http provides the replies endpoint
package http

import (
	"net/http"
	"strconv"

	"replywatch/internal/modkit/httpkit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/services/replies/domain"
)

// Deps are the handler dependencies
type Deps struct {
	Svc domain.RepliesPort
}

type handlers struct {
	deps Deps
}

// Register mounts the replies routes
func Register(r httpkit.Router, d Deps) {
	h := &handlers{deps: d}
	r.Get("/replies", httpkit.Handle(h.list))
}

// list answers with a bare JSON array of stored comment payloads. The body
// intentionally skips the response envelope, consumers get the payloads as
// the source API shaped them
func (h *handlers) list(r *http.Request) httpkit.Response {
	q, err := parseQuery(r)
	if err != nil {
		return httpkit.Error(err)
	}
	out, err := h.deps.Svc.Replies(r.Context(), q)
	if err != nil {
		return httpkit.Error(err)
	}
	return httpkit.Raw(out)
}

func parseQuery(r *http.Request) (domain.Query, error) {
	v := r.URL.Query()
	q := domain.Query{AuthorName: v.Get("author_name")}

	from := v.Get("from")
	if from == "" {
		return q, perr.Validationf("from is required")
	}
	ts, err := strconv.ParseInt(from, 10, 64)
	if err != nil {
		return q, perr.Validationf("from must be a unix timestamp")
	}
	q.From = ts

	if p := v.Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return q, perr.Validationf("page must be a positive integer")
		}
		q.Page = n
	}
	if ps := v.Get("page_size"); ps != "" {
		n, err := strconv.Atoi(ps)
		if err != nil || n < 1 {
			return q, perr.Validationf("page_size must be a positive integer")
		}
		q.PageSize = n
	}
	return q, nil
}
