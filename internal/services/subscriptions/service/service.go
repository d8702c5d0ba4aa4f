// Package service contains subscription signup and teardown workflows
package service

import (
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/modkit"
	"replywatch/internal/modkit/repokit"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/logger"
	"replywatch/internal/services/subscriptions/domain"
	"replywatch/internal/services/subscriptions/repo"
)

// Config shapes the subscription workflows
type Config struct {
	// PublicURL is the externally reachable base for verification links
	PublicURL string

	// TokenTTL is how long a verification token stays redeemable
	TokenTTL time.Duration

	// RateLimit / RateWindow bound sends per client address
	RateLimit  int
	RateWindow time.Duration

	// ResendBase is the first resend hold, doubling per prior send
	ResendBase time.Duration
}

// Svc implements domain.SubscribePort
type Svc struct {
	deps     modkit.Deps
	sender   mail.Sender
	binder   repokit.Binder[repo.Repo]
	cfg      Config
	limiter  *ipLimiter
	suppress *suppressor
	log      logger.Logger
	now      func() time.Time
}

// New constructs the subscriptions service
func New(deps modkit.Deps, sender mail.Sender, cfg Config) *Svc {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}
	if cfg.RateWindow <= 0 {
		cfg.RateWindow = time.Hour
	}
	return &Svc{
		deps:     deps,
		sender:   sender,
		binder:   repo.NewPG(),
		cfg:      cfg,
		limiter:  newIPLimiter(cfg.RateLimit, cfg.RateWindow),
		suppress: newSuppressor(cfg.ResendBase),
		log:      *logger.Named("subscriptions"),
		now:      time.Now,
	}
}

var verifyTmpl = template.Must(template.New("verify").Parse(`<html>
<body>
<p>Someone asked to be notified about replies to comments by <strong>{{.AuthorName}}</strong>.</p>
<p>If that was you, confirm here: <a href="{{.URL}}">{{.URL}}</a></p>
<p>The link expires in {{.TTL}}. If this was not you, ignore this email.</p>
</body>
</html>
`))

// SendVerification rate limits the caller, suppresses rapid resends for the
// same address, then mints a token and emails the confirmation link.
// A suppressed resend is not an error, the caller still sees success
func (s *Svc) SendVerification(ctx context.Context, ip string, req domain.SendRequest) error {
	if !s.limiter.allow(ip) {
		return perr.Unavailablef("too many verification requests, slow down")
	}
	if !s.suppress.shouldSend(req.Email) {
		s.log.Debug().Str("email", req.Email).Msg("verification resend suppressed")
		return nil
	}

	token := domain.Token{
		ID:         uuid.NewString(),
		Email:      req.Email,
		Expiration: s.now().Add(s.cfg.TokenTTL).Unix(),
	}
	err := s.deps.PG.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		if err := r.PurgeExpiredTokens(ctx, s.now().Unix()); err != nil {
			return err
		}
		return r.InsertToken(ctx, token)
	})
	if err != nil {
		return err
	}

	q := url.Values{}
	q.Set("author_name", req.AuthorName)
	q.Set("token", token.ID)
	link := fmt.Sprintf("%s/verify?%s", strings.TrimRight(s.cfg.PublicURL, "/"), q.Encode())

	var b strings.Builder
	if err := verifyTmpl.Execute(&b, map[string]any{
		"AuthorName": req.AuthorName,
		"URL":        link,
		"TTL":        s.cfg.TokenTTL.String(),
	}); err != nil {
		return err
	}

	if err := s.sender.Send(ctx, mail.Message{
		To:      req.Email,
		Subject: fmt.Sprintf("Confirm reply notifications for %s", req.AuthorName),
		HTML:    b.String(),
	}); err != nil {
		return err
	}
	s.log.Info().Str("email", req.Email).Str("author", req.AuthorName).Msg("verification sent")
	return nil
}

// Verify redeems a token: it is deleted on use and the subscription is
// created idempotently
func (s *Svc) Verify(ctx context.Context, authorName, token string) error {
	if authorName == "" {
		return perr.Validationf("author_name is required")
	}
	if _, err := uuid.Parse(token); err != nil {
		return perr.Validationf("malformed token")
	}

	return s.deps.PG.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)
		t, err := r.TokenByID(ctx, token)
		if err != nil {
			if perr.IsCode(err, perr.ErrorCodeNotFound) {
				return perr.Validationf("unknown or already used token")
			}
			return err
		}
		if t.Expiration < s.now().Unix() {
			// expired tokens are dead either way, drop it now
			_ = r.DeleteToken(ctx, token)
			return perr.Validationf("token expired")
		}
		if err := r.DeleteToken(ctx, token); err != nil {
			return err
		}
		return r.InsertSubscription(ctx, t.Email, authorName)
	})
}

// Unsubscribe removes the (id, email) subscription. Removing a subscription
// that is already gone succeeds, the links in old digests stay safe to click
func (s *Svc) Unsubscribe(ctx context.Context, id, email string) error {
	if _, err := uuid.Parse(id); err != nil {
		return perr.Validationf("malformed subscription id")
	}
	if email == "" {
		return perr.Validationf("email is required")
	}
	return s.deps.PG.Tx(ctx, func(q repokit.Queryer) error {
		return s.binder.Bind(q).DeleteSubscription(ctx, id, email)
	})
}
