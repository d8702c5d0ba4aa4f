// Package wordpress fetches comments from a WordPress style REST endpoint
package wordpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"replywatch/internal/bridge"
	"replywatch/internal/platform/config"
	perr "replywatch/internal/platform/errors"
	"replywatch/internal/platform/logger"
)

const (
	defaultPerPage = 100
	defaultTimeout = 30 * time.Second

	// dates on the wire carry no zone, the site zone is configured
	dateLayout = "2006-01-02T15:04:05"
)

// Options configures the Client
type Options struct {
	// BaseURL is the API root, the client appends /comments
	BaseURL string

	// Location is the site-local zone the date field is expressed in
	Location *time.Location

	PerPage int
	Timeout time.Duration
}

// OptionsFromConf reads SOURCE_* keys
func OptionsFromConf(cfg config.Conf) Options {
	src := cfg.Prefix("SOURCE_")
	return Options{
		BaseURL:  src.MustURL("URL").String(),
		Location: src.MayLocation("TIMEZONE", "UTC"),
		PerPage:  src.MayInt("PER_PAGE", defaultPerPage),
		Timeout:  src.MayDuration("TIMEOUT", defaultTimeout),
	}
}

// Client pulls pages of comments ordered by date ascending
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
}

// NewClient creates a Client with sane defaults
func NewClient(o Options) *Client {
	if o.PerPage <= 0 {
		o.PerPage = defaultPerPage
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	return &Client{
		http: &http.Client{Timeout: o.Timeout},
		opts: o,
		log:  *logger.Named("wordpress"),
	}
}

// Page fetches one page of comments strictly newer than after.
// An empty slice means pagination is exhausted
func (c *Client) Page(ctx context.Context, page int, after time.Time) ([]Comment, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.opts.PerPage))
	q.Set("after", after.In(c.opts.Location).Format(dateLayout))
	q.Set("order", "asc")
	q.Set("orderby", "date")
	u := fmt.Sprintf("%s/comments?%s", c.opts.BaseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceFetch, "source new request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceFetch, "source fetch page %d", page)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceFetch, "source read page %d", page)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, perr.SourceFetchf("source page %d: status %d", page, resp.StatusCode)
	}

	var raws []json.RawMessage
	if err := json.Unmarshal(body, &raws); err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeSourceFetch, "source decode page %d", page)
	}

	out := make([]Comment, 0, len(raws))
	for _, raw := range raws {
		var w wireComment
		if err := json.Unmarshal(raw, &w); err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeSourceFetch, "source decode comment on page %d", page)
		}
		ts, err := time.ParseInLocation(dateLayout, w.Date, c.opts.Location)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeSourceFetch, "source date %q on page %d", w.Date, page)
		}
		out = append(out, Comment{
			ID:         w.ID,
			AuthorName: w.AuthorName,
			Parent:     w.Parent,
			TS:         ts.Unix(),
			HTML:       w.Content.Rendered,
			Raw:        raw,
		})
	}
	return out, nil
}

// PageAsync starts the fetch on its own goroutine and returns a cell the
// caller parks on. Sequential ingestion code drives the async fetch this way
func (c *Client) PageAsync(ctx context.Context, page int, after time.Time) *bridge.Cell[[]Comment] {
	cell := bridge.NewCell[[]Comment]()
	bridge.Go(ctx, "wordpress.page", func(ctx context.Context) error {
		cell.Callback()(c.Page(ctx, page, after))
		return nil
	})
	return cell
}
