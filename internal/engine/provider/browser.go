package provider

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	feedSelector   = `div[role="feed"]`
	scrollStages   = 5
	minScrollPause = 2 * time.Second
	maxScrollPause = 5 * time.Second
)

const scrollFeedJS = `(() => {
	const f = document.querySelector('div[role="feed"]');
	if (!f) return 0;
	f.scrollTo(0, f.scrollHeight);
	return f.scrollHeight;
})()`

// BrowserOptions configures BrowserExecutor.
type BrowserOptions struct {
	Lang        string
	Headless    bool
	ChromePath  string
	ProxyURL    string
	FeedTimeout time.Duration
}

// BrowserExecutor drives a headless Chrome through the Maps web UI. Every
// search gets its own browser process.
type BrowserExecutor struct {
	opts BrowserOptions
	log  *zap.Logger
}

func NewBrowserExecutor(opts BrowserOptions, log *zap.Logger) *BrowserExecutor {
	if opts.Lang == "" {
		opts.Lang = "en"
	}
	if opts.FeedTimeout <= 0 {
		opts.FeedTimeout = 15 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BrowserExecutor{opts: opts, log: log.Named("browser")}
}

func (b *BrowserExecutor) Name() string { return "browser" }

// Begin launches the browser with a randomized window size and user agent.
func (b *BrowserExecutor) Begin(ctx context.Context, _ string) (Session, error) {
	width := 1200 + rand.IntN(401)
	height := 800 + rand.IntN(201)
	ua := userAgents[rand.IntN(len(userAgents))]

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(width, height),
		chromedp.UserAgent(ua),
	)
	if b.opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.opts.ChromePath))
	}
	if b.opts.ProxyURL != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(b.opts.ProxyURL))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	// Start the browser now so that a missing Chrome fails the search
	// before any provider call is counted.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	b.log.Debug("browser started", zap.Int("width", width), zap.Int("height", height))
	return &browserSession{
		exec: b,
		ctx:  browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}, nil
}

type browserSession struct {
	exec   *BrowserExecutor
	ctx    context.Context
	cancel context.CancelFunc
}

func (s *browserSession) Close() error {
	s.cancel()
	return nil
}

// FetchPage runs one navigate, scroll and extract pass. Browser pages never
// carry a next token.
func (s *browserSession) FetchPage(ctx context.Context, query, _ string) (Page, error) {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	target := "https://www.google.com/maps/search/" + url.PathEscape(query) + "?hl=" + url.QueryEscape(s.exec.opts.Lang)
	if err := chromedp.Run(runCtx, chromedp.Navigate(target)); err != nil {
		return Page{}, s.wrap(ctx, err, "navigating")
	}

	waitCtx, cancelWait := context.WithTimeout(runCtx, s.exec.opts.FeedTimeout)
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(feedSelector, chromedp.ByQuery))
	cancelWait()
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
		var body string
		if herr := chromedp.Run(runCtx, chromedp.OuterHTML("body", &body, chromedp.ByQuery)); herr == nil && HasNoResults(body) {
			return Page{ZeroResults: true}, nil
		}
		return Page{}, &Error{Status: StatusFeedTimeout, Message: fmt.Sprintf("results feed did not appear within %s", s.exec.opts.FeedTimeout)}
	}

	if err := s.scroll(runCtx); err != nil {
		return Page{}, s.wrap(ctx, err, "scrolling feed")
	}

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML(feedSelector, &html, chromedp.ByQuery)); err != nil {
		return Page{}, s.wrap(ctx, err, "extracting feed")
	}

	results, err := ParseFeed(html)
	if err != nil {
		return Page{}, &Error{Status: StatusBadResponse, Message: err.Error()}
	}
	if len(results) == 0 {
		return Page{ZeroResults: true}, nil
	}
	return Page{Results: results}, nil
}

// scroll loads more cards, stopping early once the feed stops growing.
func (s *browserSession) scroll(ctx context.Context) error {
	var last float64
	for stage := 0; stage < scrollStages; stage++ {
		var height float64
		if err := chromedp.Run(ctx, chromedp.Evaluate(scrollFeedJS, &height)); err != nil {
			return err
		}
		if stage > 0 && height <= last {
			return nil
		}
		last = height

		pause := minScrollPause + rand.N(maxScrollPause-minScrollPause)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
	return nil
}

func (s *browserSession) wrap(ctx context.Context, err error, what string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: browser closed: %w", what, err)
	}
	return fmt.Errorf("%s: %w", what, err)
}
