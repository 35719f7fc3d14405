package form

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
)

// AutomationError is a field interaction that failed on every path.
type AutomationError struct {
	Message string
	Details string
	Err     error
}

func (e *AutomationError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return e.Message + ": " + e.Details
}

func (e *AutomationError) Unwrap() error {
	return e.Err
}

type interaction int

const (
	interactClick interaction = iota
	interactRadio
	interactText
	interactSelect
)

func (i interaction) String() string {
	switch i {
	case interactClick:
		return "click"
	case interactRadio:
		return "choose"
	case interactText:
		return "fill"
	case interactSelect:
		return "select"
	}
	return "interact"
}

const (
	domClickScript = `(function(el) {
	if (!el) { return false; }
	el.click();
	return true;
})(%s)`

	domRadioScript = `(function(el) {
	if (!el) { return false; }
	el.checked = true;
	el.dispatchEvent(new Event("click", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return true;
})(%s)`

	domTextScript = `(function(el, v) {
	if (!el) { return false; }
	el.focus();
	el.value = v;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	el.blur();
	return true;
})(%s, %s)`

	domSelectScript = `(function(el, want) {
	if (!el) { return false; }
	want = String(want).trim().toLowerCase();
	for (var i = 0; i < el.options.length; i++) {
		var o = el.options[i];
		if (o.value.trim().toLowerCase() === want || o.text.trim().toLowerCase() === want) {
			el.selectedIndex = i;
			el.dispatchEvent(new Event("change", { bubbles: true }));
			return true;
		}
	}
	return false;
})(%s, %s)`
)

// filler performs field interactions: scroll into view, the primary interaction,
// then a DOM mutation and finally a simulated pointer action.
type filler struct {
	sess         session.Session
	log          log.Logger
	clickRetries int
	clickDelay   time.Duration
}

// Click retries the whole interaction chain up to clickRetries times.
func (f *filler) Click(ctx context.Context, name string, loc session.Locator) error {
	retries := f.clickRetries
	if retries < 1 {
		retries = 1
	}

	var (
		details []string
		first   error
	)
	for attempt := 1; attempt <= retries; attempt++ {
		err := f.interact(ctx, interactClick, loc, "")
		if err == nil {
			return nil
		}
		if first == nil {
			first = err
		}
		details = append(details, fmt.Sprintf("attempt %d: %v", attempt, err))

		if attempt < retries {
			level.Debug(f.log).Log("msg", "click failed, retrying", "field", name, "attempt", attempt, "err", err)
			time.Sleep(f.clickDelay)
		}
	}

	return &AutomationError{
		Message: "click " + name,
		Details: strings.Join(details, "; "),
		Err:     first,
	}
}

func (f *filler) Choose(ctx context.Context, name string, loc session.Locator) error {
	return f.once(ctx, interactRadio, name, loc, "")
}

func (f *filler) Fill(ctx context.Context, name string, loc session.Locator, value string) error {
	return f.once(ctx, interactText, name, loc, value)
}

func (f *filler) Select(ctx context.Context, name string, loc session.Locator, value string) error {
	return f.once(ctx, interactSelect, name, loc, value)
}

func (f *filler) once(ctx context.Context, kind interaction, name string, loc session.Locator, value string) error {
	if (kind == interactText || kind == interactSelect) && strings.TrimSpace(value) == "" {
		return &AutomationError{Message: kind.String() + " " + name, Details: "no value to submit"}
	}

	if err := f.interact(ctx, kind, loc, value); err != nil {
		return &AutomationError{
			Message: kind.String() + " " + name,
			Details: err.Error(),
			Err:     err,
		}
	}
	return nil
}

// interact returns the primary error wrapped with the alternates' failures.
func (f *filler) interact(ctx context.Context, kind interaction, loc session.Locator, value string) error {
	if err := f.sess.ScrollIntoView(ctx, loc); err != nil {
		level.Debug(f.log).Log("msg", "scroll into view failed", "locator", loc, "err", err)
	}

	primary := f.primary(ctx, kind, loc, value)
	if primary == nil {
		return nil
	}
	level.Debug(f.log).Log("msg", "primary interaction failed, trying alternates", "locator", loc, "err", primary)

	domErr := f.domMutation(ctx, kind, loc, value)
	if domErr == nil {
		return nil
	}

	ptrErr := f.pointer(ctx, kind, loc, value)
	if ptrErr == nil {
		return nil
	}

	return errors.Wrapf(primary, "dom: %v; pointer: %v", domErr, ptrErr)
}

func (f *filler) primary(ctx context.Context, kind interaction, loc session.Locator, value string) error {
	switch kind {
	case interactText:
		return f.sess.Type(ctx, loc, value)
	case interactSelect:
		return f.sess.SelectOption(ctx, loc, value)
	default:
		return f.sess.Click(ctx, loc)
	}
}

func (f *filler) domMutation(ctx context.Context, kind interaction, loc session.Locator, value string) error {
	lit, _ := json.Marshal(value)

	var script string
	switch kind {
	case interactClick:
		script = fmt.Sprintf(domClickScript, loc.JSElement())
	case interactRadio:
		script = fmt.Sprintf(domRadioScript, loc.JSElement())
	case interactText:
		script = fmt.Sprintf(domTextScript, loc.JSElement(), lit)
	case interactSelect:
		script = fmt.Sprintf(domSelectScript, loc.JSElement(), lit)
	}

	var ok bool
	if err := f.sess.ExecuteScript(ctx, script, &ok); err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(session.ErrElementNotFound, "dom %s", loc)
	}
	return nil
}

func (f *filler) pointer(ctx context.Context, kind interaction, loc session.Locator, value string) error {
	if err := f.sess.PointerClick(ctx, loc); err != nil {
		return err
	}
	switch kind {
	case interactText:
		return f.sess.Type(ctx, loc, value)
	case interactSelect:
		return f.sess.SelectOption(ctx, loc, value)
	}
	return nil
}
