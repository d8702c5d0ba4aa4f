// Package service contains the digest delivery workflow
package service

import (
	"context"
	"time"

	"replywatch/internal/adapters/mail"
	"replywatch/internal/modkit"
	"replywatch/internal/modkit/repokit"
	"replywatch/internal/platform/logger"
	"replywatch/internal/services/digest/domain"
	"replywatch/internal/services/digest/repo"
)

// Config shapes digest delivery
type Config struct {
	// PublicURL is the externally reachable base for unsubscribe links
	PublicURL string

	// Subject of every digest email
	Subject string
}

// Svc runs the digest workflow
type Svc struct {
	deps   modkit.Deps
	sender mail.Sender
	binder repokit.Binder[repo.Repo]
	cfg    Config
	log    logger.Logger
	now    func() time.Time
}

// New constructs the digest service
func New(deps modkit.Deps, sender mail.Sender, cfg Config) *Svc {
	if cfg.Subject == "" {
		cfg.Subject = "New replies to your comments"
	}
	return &Svc{
		deps:   deps,
		sender: sender,
		binder: repo.NewPG(),
		cfg:    cfg,
		log:    *logger.Named("digest"),
		now:    time.Now,
	}
}

// RunOnce advances the cursor past everything currently stored and then
// delivers one digest per recipient. The cursor commit happens before any
// send, so a crash mid-delivery drops mail rather than duplicating it
func (s *Svc) RunOnce(ctx context.Context) error {
	var matches []domain.Match
	err := s.deps.PG.Tx(ctx, func(q repokit.Queryer) error {
		r := s.binder.Bind(q)

		if err := r.EnsureCursor(ctx, s.now().Unix()); err != nil {
			return err
		}
		start, err := r.LockCursor(ctx)
		if err != nil {
			return err
		}

		matches, err = r.MatchesSince(ctx, start)
		if err != nil {
			return err
		}

		next := start
		if len(matches) > 0 {
			// matches come back ordered by ts
			next = matches[len(matches)-1].TS
		}
		// unmatched comments move the cursor too, the run has seen them
		maxTS, err := r.MaxCommentTS(ctx)
		if err != nil {
			return err
		}
		if maxTS > next {
			next = maxTS
		}
		// the cursor never moves backwards
		if next < start {
			next = start
		}
		if next != start {
			return r.AdvanceCursor(ctx, next)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	s.deliver(ctx, matches)
	return nil
}

// deliver groups matches per recipient and sends each digest. Failures are
// logged and dropped; the cursor already moved, retrying would double-send
// for the recipients that worked
func (s *Svc) deliver(ctx context.Context, matches []domain.Match) {
	byEmail := map[string][]domain.Match{}
	var order []string
	for _, m := range matches {
		if _, seen := byEmail[m.Email]; !seen {
			order = append(order, m.Email)
		}
		byEmail[m.Email] = append(byEmail[m.Email], m)
	}

	for _, email := range order {
		group := byEmail[email]
		html, err := composeDigest(s.cfg.PublicURL, email, group)
		if err != nil {
			s.log.Error().Err(err).Str("to", email).Msg("digest compose failed")
			continue
		}
		if err := s.sender.Send(ctx, mail.Message{
			To:      email,
			Subject: s.cfg.Subject,
			HTML:    html,
		}); err != nil {
			s.log.Error().Err(err).Str("to", email).Msg("digest send failed")
			continue
		}
		s.log.Info().Str("to", email).Int("comments", len(group)).Msg("digest sent")
	}
}
