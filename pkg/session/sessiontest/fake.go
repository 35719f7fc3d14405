// Package sessiontest provides a scripted in-memory session.Session for tests.
package sessiontest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/pkg/errors"
)

type Call struct {
	Op      string
	Locator session.Locator
	Value   string
}

// Fake records every call. All elements are present unless listed in Missing.
type Fake struct {
	mu    sync.Mutex
	calls []Call
	text  string
	src   string

	// Missing holds locators that are absent from the page.
	Missing map[session.Locator]bool
	// Errors maps "Op locator" (see Key) to the error that call returns.
	Errors map[string]error
	// Hook runs before every operation; a non-nil error is returned by the operation.
	Hook func(op string, loc session.Locator, value string) error
	// Script handles ExecuteScript. The default answers readyState with "complete",
	// any other *string with "" and a *bool with false when the script addresses a
	// missing element, true otherwise.
	Script func(script string, out any) error

	PDF      []byte
	PrintErr error
	Logs     []session.LogEntry
	LogsErr  error
	QuitErr  error

	QuitCount      int
	ForceQuitCount int
}

func New() *Fake {
	return &Fake{
		Missing: make(map[session.Locator]bool),
		Errors:  make(map[string]error),
		PDF:     []byte("%PDF-1.4 fake"),
	}
}

// Key builds the Errors map key for op on loc.
func Key(op string, loc session.Locator) string {
	return op + " " + loc.String()
}

func (f *Fake) SetText(text string) {
	f.mu.Lock()
	f.text = text
	f.mu.Unlock()
}

func (f *Fake) SetSource(src string) {
	f.mu.Lock()
	f.src = src
	f.mu.Unlock()
}

func (f *Fake) record(op string, loc session.Locator, value string) error {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Op: op, Locator: loc, Value: value})
	hook := f.Hook
	err := f.Errors[Key(op, loc)]
	f.mu.Unlock()

	if hook != nil {
		if hErr := hook(op, loc, value); hErr != nil {
			return hErr
		}
	}
	return err
}

func (f *Fake) missing(loc session.Locator) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Missing[loc]
}

// Remove makes locs absent from the page.
func (f *Fake) Remove(locs ...session.Locator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range locs {
		f.Missing[l] = true
	}
}

// Restore makes locs present again.
func (f *Fake) Restore(locs ...session.Locator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range locs {
		delete(f.Missing, l)
	}
}

// targetsMissing reports whether script addresses an absent element.
func (f *Fake) targetsMissing(script string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for l := range f.Missing {
		if strings.Contains(script, l.JSElement()) {
			return true
		}
	}
	return false
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Count returns how many times op was called on loc.
func (f *Fake) Count(op string, loc session.Locator) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op && c.Locator == loc {
			n++
		}
	}
	return n
}

// Value returns the last value passed to op on loc.
func (f *Fake) Value(op string, loc session.Locator) (string, bool) {
	calls := f.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Op == op && calls[i].Locator == loc {
			return calls[i].Value, true
		}
	}
	return "", false
}

// Touched reports whether any operation targeted loc.
func (f *Fake) Touched(loc session.Locator) bool {
	for _, c := range f.Calls() {
		if c.Locator == loc {
			return true
		}
	}
	return false
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	return f.record("Navigate", session.Locator{}, url)
}

func (f *Fake) WaitFor(_ context.Context, loc session.Locator, _ time.Duration) error {
	if err := f.record("WaitFor", loc, ""); err != nil {
		return err
	}
	if f.missing(loc) {
		return errors.Wrapf(session.ErrElementNotReady, "wait for %s", loc)
	}
	return nil
}

func (f *Fake) Present(_ context.Context, loc session.Locator) (bool, error) {
	if err := f.record("Present", loc, ""); err != nil {
		return false, err
	}
	return !f.missing(loc), nil
}

func (f *Fake) interact(op string, loc session.Locator, value string) error {
	if err := f.record(op, loc, value); err != nil {
		return err
	}
	if f.missing(loc) {
		return errors.Wrapf(session.ErrElementNotFound, "%s %s", strings.ToLower(op), loc)
	}
	return nil
}

func (f *Fake) ScrollIntoView(_ context.Context, loc session.Locator) error {
	return f.interact("ScrollIntoView", loc, "")
}

func (f *Fake) Click(_ context.Context, loc session.Locator) error {
	return f.interact("Click", loc, "")
}

func (f *Fake) PointerClick(_ context.Context, loc session.Locator) error {
	return f.interact("PointerClick", loc, "")
}

func (f *Fake) Type(_ context.Context, loc session.Locator, text string) error {
	return f.interact("Type", loc, text)
}

func (f *Fake) SelectOption(_ context.Context, loc session.Locator, option string) error {
	return f.interact("SelectOption", loc, option)
}

func (f *Fake) PageText(context.Context) (string, error) {
	if err := f.record("PageText", session.Locator{}, ""); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text, nil
}

func (f *Fake) PageSource(context.Context) (string, error) {
	if err := f.record("PageSource", session.Locator{}, ""); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src, nil
}

func (f *Fake) ExecuteScript(_ context.Context, script string, out any) error {
	if err := f.record("ExecuteScript", session.Locator{}, script); err != nil {
		return err
	}
	if f.Script != nil {
		return f.Script(script, out)
	}

	switch v := out.(type) {
	case *string:
		if strings.Contains(script, "document.readyState") {
			*v = "complete"
		} else {
			*v = ""
		}
	case *bool:
		*v = !f.targetsMissing(script)
	}
	return nil
}

func (f *Fake) PrintToDocument(context.Context, session.PrintOptions) ([]byte, error) {
	if err := f.record("PrintToDocument", session.Locator{}, ""); err != nil {
		return nil, err
	}
	if f.PrintErr != nil {
		return nil, f.PrintErr
	}
	return append([]byte(nil), f.PDF...), nil
}

func (f *Fake) ConsoleLogs(context.Context) ([]session.LogEntry, error) {
	if err := f.record("ConsoleLogs", session.Locator{}, ""); err != nil {
		return nil, err
	}
	return append([]session.LogEntry(nil), f.Logs...), f.LogsErr
}

func (f *Fake) Quit(context.Context) error {
	f.mu.Lock()
	f.QuitCount++
	f.mu.Unlock()
	return f.QuitErr
}

func (f *Fake) ForceQuit() error {
	f.mu.Lock()
	f.ForceQuitCount++
	f.mu.Unlock()
	return nil
}

var _ session.Session = (*Fake)(nil)
