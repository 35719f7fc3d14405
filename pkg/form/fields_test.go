package form

import (
	"context"
	"testing"
	"time"

	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/ValerySidorin/einfiler/pkg/session/sessiontest"
	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillerClickRecoversOnRetry(t *testing.T) {
	f := sessiontest.New()
	loc := session.ID("btn")
	attempts := 0
	f.Hook = func(op string, l session.Locator, _ string) error {
		if l != loc {
			return nil
		}
		if op == "Click" {
			attempts++
		}
		if attempts < 2 && (op == "Click" || op == "PointerClick" || op == "ScrollIntoView") {
			return errors.New("detached")
		}
		return nil
	}
	f.Script = func(string, any) error { return errors.New("script blocked") }

	fl := &filler{sess: f, log: log.NewNopLogger(), clickRetries: 3, clickDelay: time.Millisecond}
	require.NoError(t, fl.Click(context.Background(), "go", loc))
	assert.Equal(t, 2, f.Count("Click", loc))
}

func TestFillerRejectsEmptyValues(t *testing.T) {
	f := sessiontest.New()
	fl := &filler{sess: f, log: log.NewNopLogger(), clickRetries: 3}

	err := fl.Fill(context.Background(), "city", session.ID("city"), "  ")
	var ae *AutomationError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "fill city", ae.Message)
	assert.Equal(t, "no value to submit", ae.Details)
	assert.Empty(t, f.Calls())

	err = fl.Select(context.Background(), "state", session.ID("state"), "")
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "select state", ae.Message)
}

func TestFillerSelectAlternates(t *testing.T) {
	f := sessiontest.New()
	loc := session.ID("state")
	f.Errors[sessiontest.Key("SelectOption", loc)] = errors.New("option list not rendered")
	f.Script = func(string, any) error { return errors.New("script blocked") }

	fl := &filler{sess: f, log: log.NewNopLogger(), clickRetries: 3}
	err := fl.Select(context.Background(), "state", loc, "TX")

	require.Error(t, err)
	assert.Equal(t, 2, f.Count("SelectOption", loc))
	assert.Equal(t, 1, f.Count("PointerClick", loc))
	assert.Equal(t, 1, f.Count("ScrollIntoView", loc))
}

func TestAutomationErrorMessage(t *testing.T) {
	assert.Equal(t, "fill city", (&AutomationError{Message: "fill city"}).Error())
	assert.Equal(t, "fill city: gone", (&AutomationError{Message: "fill city", Details: "gone"}).Error())

	cause := session.ErrElementNotReady
	assert.True(t, errors.Is(&AutomationError{Message: "x", Err: cause}, session.ErrElementNotReady))
}
