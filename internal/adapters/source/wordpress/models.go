package wordpress

import "encoding/json"

// wireComment is the subset of the comments endpoint payload we read.
// Raw keeps the untouched message so storage can persist the payload verbatim
type wireComment struct {
	ID         int64  `json:"id"`
	AuthorName string `json:"author_name"`
	Parent     int64  `json:"parent"`
	Date       string `json:"date"`
	Content    struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
}

// Comment is one source comment with the fields ingestion cares about
type Comment struct {
	ID         int64
	AuthorName string
	Parent     int64

	// TS is the comment timestamp in unix seconds, derived from the
	// site-local date field
	TS int64

	// HTML is the rendered comment body
	HTML string

	// Raw is the comment exactly as the source returned it
	Raw json.RawMessage
}
