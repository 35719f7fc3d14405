// Package session describes the interactive browser capability the form driver needs.
// Implementations live in subpackages; the core never depends on a concrete driver.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrElementNotReady is returned when an element did not appear or become
	// interactable within the allowed time. Callers may treat it as transient.
	ErrElementNotReady = errors.New("element not ready")
	ErrElementNotFound = errors.New("element not found")
)

type By int

const (
	ByID By = iota
	ByCSS
	ByXPath
)

func (b By) String() string {
	switch b {
	case ByID:
		return "id"
	case ByCSS:
		return "css"
	case ByXPath:
		return "xpath"
	}
	return "unknown"
}

type Locator struct {
	By    By
	Value string
}

func ID(v string) Locator    { return Locator{By: ByID, Value: v} }
func CSS(v string) Locator   { return Locator{By: ByCSS, Value: v} }
func XPath(v string) Locator { return Locator{By: ByXPath, Value: v} }

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Value)
}

// JSElement is a JavaScript expression evaluating to the located element or null.
func (l Locator) JSElement() string {
	lit, _ := json.Marshal(l.Value)
	switch l.By {
	case ByID:
		return fmt.Sprintf("document.getElementById(%s)", lit)
	case ByXPath:
		return fmt.Sprintf("document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue", lit)
	default:
		return fmt.Sprintf("document.querySelector(%s)", lit)
	}
}

// PrintOptions are in inches.
type PrintOptions struct {
	PaperWidth      float64
	PaperHeight     float64
	MarginTop       float64
	MarginBottom    float64
	MarginLeft      float64
	MarginRight     float64
	PrintBackground bool
}

// LetterPrint is US Letter with 0.4in margins.
var LetterPrint = PrintOptions{
	PaperWidth:      8.5,
	PaperHeight:     11,
	MarginTop:       0.4,
	MarginBottom:    0.4,
	MarginLeft:      0.4,
	MarginRight:     0.4,
	PrintBackground: true,
}

type LogEntry struct {
	Time   time.Time `json:"time"`
	Level  string    `json:"level"`
	Source string    `json:"source"`
	Text   string    `json:"text"`
}

// Session is owned by exactly one run. Methods are not safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, loc Locator, timeout time.Duration) error
	Present(ctx context.Context, loc Locator) (bool, error)
	ScrollIntoView(ctx context.Context, loc Locator) error

	Click(ctx context.Context, loc Locator) error
	PointerClick(ctx context.Context, loc Locator) error
	Type(ctx context.Context, loc Locator, text string) error
	SelectOption(ctx context.Context, loc Locator, option string) error

	PageText(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	// ExecuteScript evaluates script, awaiting a returned promise, and decodes the
	// result into out. out may be nil.
	ExecuteScript(ctx context.Context, script string, out any) error
	PrintToDocument(ctx context.Context, opts PrintOptions) ([]byte, error)
	ConsoleLogs(ctx context.Context) ([]LogEntry, error)

	// Quit releases the session gracefully; ForceQuit tears it down unconditionally.
	Quit(ctx context.Context) error
	ForceQuit() error
}

type Factory interface {
	New(ctx context.Context) (Session, error)
}

// FactoryFunc adapts a function to Factory.
type FactoryFunc func(ctx context.Context) (Session, error)

func (f FactoryFunc) New(ctx context.Context) (Session, error) {
	return f(ctx)
}
