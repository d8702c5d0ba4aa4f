package service

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"replywatch/internal/services/digest/domain"
)

// commentView is the per-comment slice of a digest body
type commentView struct {
	AuthorName string
	Link       string
	Body       template.HTML
}

// unsubView is one unsubscribe link at the digest foot
type unsubView struct {
	AuthorName string
	URL        string
}

type digestView struct {
	Comments []commentView
	Unsubs   []unsubView
}

var digestTmpl = template.Must(template.New("digest").Parse(`<html>
<body>
<p>New replies to comments you follow:</p>
{{range .Comments}}
<hr>
<p><strong>{{.AuthorName}}</strong>{{if .Link}} (<a href="{{.Link}}">view</a>){{end}}</p>
{{.Body}}
{{end}}
<hr>
<p style="font-size:smaller">
{{range .Unsubs}}
<a href="{{.URL}}">Unsubscribe from replies to {{.AuthorName}}</a><br>
{{end}}
</p>
</body>
</html>
`))

// payloadView is the subset of the stored payload rendered in the digest
type payloadView struct {
	AuthorName string `json:"author_name"`
	Link       string `json:"link"`
	Content    struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
}

// composeDigest renders one recipient's digest from their matches.
// Every match belongs to the same email; one unsubscribe link is emitted
// per distinct subscription
func composeDigest(publicURL string, email string, matches []domain.Match) (string, error) {
	view := digestView{}
	seenSubs := map[string]struct{}{}
	seenComments := map[int64]struct{}{}

	for _, m := range matches {
		if _, dup := seenComments[m.CommentID]; !dup {
			seenComments[m.CommentID] = struct{}{}
			var p payloadView
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				return "", fmt.Errorf("payload of comment %d: %w", m.CommentID, err)
			}
			view.Comments = append(view.Comments, commentView{
				AuthorName: p.AuthorName,
				Link:       p.Link,
				// stored payloads are rendered html from the source site
				Body: template.HTML(p.Content.Rendered), // #nosec G203
			})
		}
		if _, dup := seenSubs[m.SubscriptionID]; !dup {
			seenSubs[m.SubscriptionID] = struct{}{}
			q := url.Values{}
			q.Set("id", m.SubscriptionID)
			q.Set("email", email)
			view.Unsubs = append(view.Unsubs, unsubView{
				AuthorName: m.AuthorName,
				URL:        fmt.Sprintf("%s/unsubscribe?%s", strings.TrimRight(publicURL, "/"), q.Encode()),
			})
		}
	}

	var b strings.Builder
	if err := digestTmpl.Execute(&b, view); err != nil {
		return "", err
	}
	return b.String(), nil
}
