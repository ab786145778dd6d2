package reddit

import (
	"errors"
	"fmt"
)

// Thread is the flattened content of one discussion: the post plus up to
// maxComments surviving comment bodies in their original order.
type Thread struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Comments []string `json:"comments"`
}

var (
	// ErrInvalidURL means the input does not look like a Reddit URL. Returned
	// before any network call.
	ErrInvalidURL = errors.New("invalid reddit url")
	// ErrPostNotFound means the upstream payload carried no post element.
	ErrPostNotFound = errors.New("post content not found")
)

// UpstreamError reports a non-success transport result from Reddit.
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("reddit returned status %d", e.Status)
}

// listing mirrors the two-element thread payload: element 0 holds the post,
// element 1 holds the flat comment list. Threaded replies are not descended
// into.
type listing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title    string `json:"title"`
				Selftext string `json:"selftext"`
				Body     string `json:"body"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}
