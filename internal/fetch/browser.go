package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/chromedp/chromedp"
)

// Class-search defaults.
const (
	DefaultClassSearchURL = "https://pisa.ucsc.edu/cs9/prd/sr9_2013/index.php"
	DefaultTerm           = "2258"
	DefaultPageSize       = 100
	DefaultBrowserTimeout = 30 * time.Second

	panelSelector = `[id^="rowpanel_"]`
	pageSettle    = time.Second
)

// ClassSearchOptions configures the class-search listing session.
type ClassSearchOptions struct {
	URL      string
	Term     string
	PageSize int
	Timeout  time.Duration
	Headless bool
	Logger   *slog.Logger
}

func (o *ClassSearchOptions) withDefaults() ClassSearchOptions {
	out := *o
	if out.URL == "" {
		out.URL = DefaultClassSearchURL
	}
	if out.Term == "" {
		out.Term = DefaultTerm
	}
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultBrowserTimeout
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// SearchURL returns the listing entry URL for the configured term.
func (o ClassSearchOptions) SearchURL() string {
	o = o.withDefaults()
	u, err := url.Parse(o.URL)
	if err != nil {
		return o.URL
	}
	q := u.Query()
	q.Set("action", "search")
	q.Set("strm", o.Term)
	u.RawQuery = q.Encode()
	return u.String()
}

// ClassSearch drives one headless browser session over the class-search
// listing. It must be closed when the run ends.
type ClassSearch struct {
	opts        ClassSearchOptions
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
}

// OpenClassSearch starts the browser. Requires Chrome/Chromium on the system.
func OpenClassSearch(ctx context.Context, opts ClassSearchOptions) (*ClassSearch, error) {
	opts = opts.withDefaults()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx),
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(DefaultUserAgent),
		)...,
	)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the browser so a missing Chrome install fails here.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, &Error{URL: opts.URL, Message: "failed to start browser", Cause: err}
	}

	opts.Logger.DebugContext(ctx, "browser started", "url", opts.SearchURL(), "headless", opts.Headless)
	return &ClassSearch{
		opts:        opts,
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelTab:   cancelTab,
	}, nil
}

// run executes actions on the browser tab, bounded by the session timeout
// and cancelled along with ctx.
func (c *ClassSearch) run(ctx context.Context, msg string, actions ...chromedp.Action) error {
	tabCtx, cancel := context.WithTimeout(c.browserCtx, c.opts.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &Error{URL: c.opts.URL, Message: msg, Cause: err}
	}
	return nil
}

// LoadPage opens the listing, selects every class status, submits the form
// and switches to the largest page size.
func (c *ClassSearch) LoadPage(ctx context.Context) error {
	var statusOK, sizeOK bool
	err := c.run(ctx, "failed to load class search",
		chromedp.Navigate(c.opts.SearchURL()),
		chromedp.WaitVisible(`#reg_status`, chromedp.ByQuery),
		chromedp.Evaluate(selectByText(`#reg_status`, "All Classes"), &statusOK),
		chromedp.Click(`#searchForm input[type="submit"]`, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.WaitVisible(`#rec_dur`, chromedp.ByQuery),
		chromedp.Evaluate(selectByText(`#rec_dur`, strconv.Itoa(c.opts.PageSize)), &sizeOK),
		chromedp.Sleep(pageSettle),
		chromedp.WaitReady(panelSelector, chromedp.ByQuery),
	)
	if err != nil {
		return err
	}
	if !statusOK || !sizeOK {
		c.opts.Logger.WarnContext(ctx, "listing form option not found", "all_classes", statusOK, "page_size", sizeOK)
	}
	return nil
}

// PanelTexts returns the rendered text of every result panel on the current page.
func (c *ClassSearch) PanelTexts(ctx context.Context) ([]string, error) {
	var texts []string
	err := c.run(ctx, "failed to read result panels",
		chromedp.Evaluate(fmt.Sprintf(
			`Array.from(document.querySelectorAll(%q)).map(e => e.innerText)`, panelSelector,
		), &texts),
	)
	return texts, err
}

// NextPage clicks the "next" link. It reports false when there is none.
func (c *ClassSearch) NextPage(ctx context.Context) (bool, error) {
	var clicked bool
	err := c.run(ctx, "failed to advance listing",
		chromedp.Evaluate(`(() => {
			const link = Array.from(document.querySelectorAll('a')).find(a => a.textContent.trim().toLowerCase() === 'next');
			if (!link) return false;
			link.click();
			return true;
		})()`, &clicked),
	)
	if err != nil || !clicked {
		return false, err
	}

	err = c.run(ctx, "failed to load next page",
		chromedp.Sleep(pageSettle),
		chromedp.WaitReady(panelSelector, chromedp.ByQuery),
	)
	return err == nil, err
}

// Close shuts the browser down.
func (c *ClassSearch) Close() error {
	c.cancelTab()
	c.cancelAlloc()
	return nil
}

// selectByText returns a script that picks the option whose visible text is
// text and fires a change event, reporting whether the option existed.
func selectByText(selector, text string) string {
	return fmt.Sprintf(`(() => {
		const sel = document.querySelector(%q);
		if (!sel) return false;
		for (const opt of sel.options) {
			if (opt.text.trim() === %q) {
				sel.value = opt.value;
				sel.dispatchEvent(new Event('change', { bubbles: true }));
				return true;
			}
		}
		return false;
	})()`, selector, text)
}
