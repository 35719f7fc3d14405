package chromedp

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/chromedp/cdproto/cdp"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

type Config struct {
	ExecPath      string        `yaml:"exec_path"`
	Headless      bool          `yaml:"headless"`
	NoSandbox     bool          `yaml:"no_sandbox"`
	UserAgent     string        `yaml:"user_agent"`
	WindowWidth   int           `yaml:"window_width"`
	WindowHeight  int           `yaml:"window_height"`
	ActionTimeout time.Duration `yaml:"action_timeout"`
}

func (c *Config) RegisterFlags(flagPrefix string, f *flag.FlagSet) {
	f.StringVar(&c.ExecPath, flagPrefix+"exec-path", "", "Path to the Chrome binary. Empty looks it up on PATH.")
	f.BoolVar(&c.Headless, flagPrefix+"headless", true, "Run the browser headless.")
	f.BoolVar(&c.NoSandbox, flagPrefix+"no-sandbox", false, "Disable the Chrome sandbox (containers).")
	f.StringVar(&c.UserAgent, flagPrefix+"user-agent", "", "Override the browser user agent.")
	f.IntVar(&c.WindowWidth, flagPrefix+"window-width", 1366, "Browser window width.")
	f.IntVar(&c.WindowHeight, flagPrefix+"window-height", 900, "Browser window height.")
	f.DurationVar(&c.ActionTimeout, flagPrefix+"action-timeout", 30*time.Second, "Upper bound for a single browser action.")
}

type Factory struct {
	cfg Config
	log log.Logger
}

func NewFactory(cfg Config, logger log.Logger) *Factory {
	return &Factory{cfg: cfg, log: log.With(logger, "component", "chromedp")}
}

// New starts a browser. The browser outlives ctx cancellation; it is only torn
// down by Quit or ForceQuit.
func (f *Factory) New(ctx context.Context) (session.Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", f.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.WindowSize(f.cfg.WindowWidth, f.cfg.WindowHeight),
	)
	if f.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if f.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(f.cfg.ExecPath))
	}
	if f.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		level.Debug(f.log).Log("msg", fmt.Sprintf(format, args...))
	}))

	s := &Session{
		cfg:           f.cfg,
		log:           f.log,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}
	chromedp.ListenTarget(browserCtx, s.onEvent)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, errors.Wrap(err, "start browser")
	}

	return s, nil
}

type Session struct {
	cfg Config
	log log.Logger

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	mu   sync.Mutex
	logs []session.LogEntry
}

func (s *Session) onEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		args := make([]string, 0, len(ev.Args))
		for _, a := range ev.Args {
			if a.Value != nil {
				args = append(args, strings.Trim(string(a.Value), `"`))
			} else if a.Description != "" {
				args = append(args, a.Description)
			}
		}
		s.appendLog(session.LogEntry{
			Time:   time.Now().UTC(),
			Level:  string(ev.Type),
			Source: "console",
			Text:   strings.Join(args, " "),
		})
	case *runtime.EventExceptionThrown:
		text := ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
			text = ev.ExceptionDetails.Exception.Description
		}
		s.appendLog(session.LogEntry{Time: time.Now().UTC(), Level: "error", Source: "exception", Text: text})
	case *cdplog.EventEntryAdded:
		s.appendLog(session.LogEntry{
			Time:   time.Now().UTC(),
			Level:  string(ev.Entry.Level),
			Source: string(ev.Entry.Source),
			Text:   ev.Entry.Text,
		})
	}
}

func (s *Session) appendLog(e session.LogEntry) {
	s.mu.Lock()
	s.logs = append(s.logs, e)
	s.mu.Unlock()
}

// run executes actions on the browser bounded by timeout. In-flight actions are not
// interrupted by ctx; ctx is only checked before starting.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = s.cfg.ActionTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	tctx, cancel := context.WithTimeout(s.browserCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(tctx, actions...)
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(session.ErrElementNotReady, err.Error())
	}
	return err
}

func query(loc session.Locator) (string, []chromedp.QueryOption) {
	switch loc.By {
	case session.ByID:
		return fmt.Sprintf(`[id=%q]`, loc.Value), []chromedp.QueryOption{chromedp.ByQuery}
	case session.ByXPath:
		return loc.Value, []chromedp.QueryOption{chromedp.BySearch}
	default:
		return loc.Value, []chromedp.QueryOption{chromedp.ByQuery}
	}
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	return errors.Wrapf(s.run(ctx, 0, chromedp.Navigate(url)), "navigate to %s", url)
}

func (s *Session) WaitFor(ctx context.Context, loc session.Locator, timeout time.Duration) error {
	sel, opts := query(loc)
	return errors.Wrapf(s.run(ctx, timeout, chromedp.WaitVisible(sel, opts...)), "wait for %s", loc)
}

func (s *Session) Present(ctx context.Context, loc session.Locator) (bool, error) {
	sel, opts := query(loc)
	var nodes []*cdp.Node
	opts = append(opts, chromedp.AtLeast(0))
	if err := s.run(ctx, 0, chromedp.Nodes(sel, &nodes, opts...)); err != nil {
		return false, errors.Wrapf(err, "query %s", loc)
	}
	return len(nodes) > 0, nil
}

func (s *Session) ScrollIntoView(ctx context.Context, loc session.Locator) error {
	sel, opts := query(loc)
	return errors.Wrapf(s.run(ctx, 0, chromedp.ScrollIntoView(sel, opts...)), "scroll to %s", loc)
}

func (s *Session) Click(ctx context.Context, loc session.Locator) error {
	sel, opts := query(loc)
	return errors.Wrapf(s.run(ctx, 0, chromedp.Click(sel, opts...)), "click %s", loc)
}

func (s *Session) PointerClick(ctx context.Context, loc session.Locator) error {
	sel, opts := query(loc)
	var nodes []*cdp.Node
	err := s.run(ctx, 0,
		chromedp.Nodes(sel, &nodes, opts...),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return session.ErrElementNotFound
			}
			return chromedp.MouseClickNode(nodes[0]).Do(ctx)
		}),
	)
	return errors.Wrapf(err, "pointer click %s", loc)
}

func (s *Session) Type(ctx context.Context, loc session.Locator, text string) error {
	sel, opts := query(loc)
	err := s.run(ctx, 0,
		chromedp.WaitVisible(sel, opts...),
		chromedp.Clear(sel, opts...),
		chromedp.SendKeys(sel, text, opts...),
	)
	return errors.Wrapf(err, "type into %s", loc)
}

const selectScript = `(function(el, want) {
	if (!el) { return false; }
	want = String(want).trim().toLowerCase();
	for (var i = 0; i < el.options.length; i++) {
		var o = el.options[i];
		if (o.value.trim().toLowerCase() === want || o.text.trim().toLowerCase() === want) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event('change', { bubbles: true }));
			return true;
		}
	}
	return false;
})(%s, %s)`

func (s *Session) SelectOption(ctx context.Context, loc session.Locator, option string) error {
	sel, opts := query(loc)
	lit, _ := json.Marshal(option)

	var ok bool
	err := s.run(ctx, 0,
		chromedp.WaitReady(sel, opts...),
		chromedp.Evaluate(fmt.Sprintf(selectScript, loc.JSElement(), lit), &ok),
	)
	if err != nil {
		return errors.Wrapf(err, "select %q in %s", option, loc)
	}
	if !ok {
		return errors.Wrapf(session.ErrElementNotFound, "option %q in %s", option, loc)
	}
	return nil
}

func (s *Session) PageText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, 0, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	return text, errors.Wrap(err, "read page text")
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, errors.Wrap(err, "read page source")
}

func (s *Session) ExecuteScript(ctx context.Context, script string, out any) error {
	err := s.run(ctx, 0, chromedp.Evaluate(script, out, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}))
	return errors.Wrap(err, "execute script")
}

func (s *Session) PrintToDocument(ctx context.Context, o session.PrintOptions) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		data, _, err := page.PrintToPDF().
			WithPaperWidth(o.PaperWidth).
			WithPaperHeight(o.PaperHeight).
			WithMarginTop(o.MarginTop).
			WithMarginBottom(o.MarginBottom).
			WithMarginLeft(o.MarginLeft).
			WithMarginRight(o.MarginRight).
			WithPrintBackground(o.PrintBackground).
			Do(ctx)
		buf = data
		return err
	}))
	if err != nil {
		return nil, errors.Wrap(err, "print to pdf")
	}
	return buf, nil
}

func (s *Session) ConsoleLogs(_ context.Context) ([]session.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]session.LogEntry(nil), s.logs...), nil
}

func (s *Session) Quit(ctx context.Context) error {
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Cancel(s.browserCtx) }()

	select {
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "close browser")
		}
		s.allocCancel()
		return nil
	case <-tctx.Done():
		return errors.Wrap(tctx.Err(), "close browser")
	}
}

func (s *Session) ForceQuit() error {
	s.browserCancel()
	s.allocCancel()
	return nil
}
