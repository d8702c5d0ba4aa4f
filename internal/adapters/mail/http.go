package mail

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"

	"replywatch/internal/platform/config"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/logger"
)

// HTTPOptions configures the HTTP mail provider
type HTTPOptions struct {
	// URL is the provider's send endpoint
	URL string

	// APIKey is sent as a bearer token
	APIKey string

	// From is the default sender when a message leaves it empty
	From string

	Timeout  time.Duration
	Attempts uint
}

// HTTPOptionsFromConf reads MAIL_* keys
func HTTPOptionsFromConf(cfg config.Conf) HTTPOptions {
	m := cfg.Prefix("MAIL_")
	return HTTPOptions{
		URL:      m.MustURL("URL").String(),
		APIKey:   m.MayString("API_KEY", ""),
		From:     m.MustString("FROM"),
		Timeout:  m.MayDuration("TIMEOUT", 30*time.Second),
		Attempts: uint(m.MayInt("ATTEMPTS", 5)), // #nosec G115
	}
}

// HTTPSender posts messages as form data to the provider endpoint
type HTTPSender struct {
	http *http.Client
	opts HTTPOptions
	log  logger.Logger
}

// NewHTTPSender creates a sender with sane defaults
func NewHTTPSender(o HTTPOptions) *HTTPSender {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Attempts == 0 {
		o.Attempts = 5
	}
	return &HTTPSender{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("mail"),
	}
}

// Send posts the message, retrying transient failures with jittered backoff.
// 4xx responses other than 429 are not retried
func (s *HTTPSender) Send(ctx context.Context, msg Message) error {
	from := msg.From
	if from == "" {
		from = s.opts.From
	}
	form := url.Values{}
	form.Set("from", from)
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("html", msg.HTML)
	body := form.Encode()

	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.URL, strings.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(perr.Wrapf(err, perr.ErrorCodeMailTransport, "mail new request"))
			}
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if s.opts.APIKey != "" {
				req.Header.Set("Authorization", "Bearer "+s.opts.APIKey)
			}

			resp, err := s.http.Do(req)
			if err != nil {
				return perr.Wrapf(err, perr.ErrorCodeMailTransport, "mail post")
			}
			defer func() { _ = resp.Body.Close() }()
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

			if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
				return nil
			}
			err = perr.MailTransportf("mail provider status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return retry.Unrecoverable(err)
			}
			return err
		},
		retry.Attempts(s.opts.Attempts),
		retry.Delay(time.Second),
		retry.MaxDelay(time.Minute),
		retry.MaxJitter(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.log.Warn().Uint("attempt", n).Err(err).Str("to", msg.To).Msg("mail send retry")
		}),
	)
	if err != nil {
		return perr.WrapIf(err, perr.ErrorCodeMailTransport, "mail send")
	}
	return nil
}
