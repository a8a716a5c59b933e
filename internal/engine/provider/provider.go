// Package provider talks to the upstream listings source. An Executor opens
// one Session per search; a Session performs single page fetches and never
// retries on its own.
package provider

import (
	"context"
	"fmt"

	"github.com/kvora49/Lead-finder-sub001/internal/model"
)

// Statuses carried by Error that do not come from the Places API itself.
const (
	StatusRateLimited = "RATE_LIMITED"
	StatusFeedTimeout = "FEED_TIMEOUT"
	StatusHTTP        = "HTTP_ERROR"
	StatusBadResponse = "BAD_RESPONSE"
)

// Error is a hard provider failure. It aborts the whole search.
type Error struct {
	Status  string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider error: %s", e.Status)
	}
	return fmt.Sprintf("provider error: %s: %s", e.Status, e.Message)
}

// Page is the outcome of one provider call. ZeroResults is the provider's
// "nothing found" answer and is not an error.
type Page struct {
	Results     []model.RawResult
	NextToken   string
	ZeroResults bool
}

// Executor creates fetch sessions. Which Executor a deployment uses is a
// configuration choice.
type Executor interface {
	Name() string
	// Begin prepares whatever a search needs (a viewport, a browser) for
	// location. The returned Session must be closed by the caller.
	Begin(ctx context.Context, location string) (Session, error)
}

// Session fetches pages for the query variants of one search.
type Session interface {
	// FetchPage performs exactly one live provider call.
	FetchPage(ctx context.Context, query, pageToken string) (Page, error)
	Close() error
}
