// Package diagnose extracts human readable failure reasons from the remote form,
// either from a live session or from captured markup.
package diagnose

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/ValerySidorin/einfiler/pkg/session"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/samber/lo"
)

const (
	errorContainerID = "errorList"
	errorClass       = "errorMessage"
	failureHeader    = "The following errors were found"
)

// siblingTextScript collects the text of error items next to (or inside) the
// located element. %s is the element expression.
const siblingTextScript = `(function(el) {
	if (!el) { return ""; }
	var out = [];
	var push = function(n) {
		var t = (n.innerText || n.textContent || "").replace(/\s+/g, " ").trim();
		if (t && out.indexOf(t) < 0) { out.push(t); }
	};
	var items = el.querySelectorAll("li, .errorText, .error");
	if (items.length) {
		items.forEach(push);
	} else if (el.parentElement) {
		var sib = el.nextElementSibling;
		while (sib) {
			var inner = sib.querySelectorAll("li, .errorText, .error");
			if (inner.length) { inner.forEach(push); } else { push(sib); }
			sib = sib.nextElementSibling;
		}
	}
	if (!out.length) { push(el); }
	return out.join("; ");
})(%s)`

const classTextScript = `(function() {
	var out = [];
	document.querySelectorAll(".` + errorClass + `").forEach(function(n) {
		var t = (n.innerText || n.textContent || "").replace(/\s+/g, " ").trim();
		if (t && out.indexOf(t) < 0) { out.push(t); }
	});
	return out.join("; ");
})()`

type strategy struct {
	name   string
	loc    session.Locator
	script string
}

var liveStrategies = []strategy{
	{
		name:   "error-container",
		loc:    session.ID(errorContainerID),
		script: sprintfElement(siblingTextScript, session.ID(errorContainerID)),
	},
	{
		name:   "error-class",
		loc:    session.CSS("." + errorClass),
		script: classTextScript,
	},
	{
		name:   "failure-header",
		loc:    session.XPath("//*[contains(normalize-space(text()), '" + failureHeader + "')]"),
		script: sprintfElement(siblingTextScript, session.XPath("//*[contains(normalize-space(text()), '"+failureHeader+"')]")),
	},
}

func sprintfElement(format string, loc session.Locator) string {
	return strings.Replace(format, "%s", loc.JSElement(), 1)
}

// Ordered; the first pattern with any non-empty match wins.
var markupPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<[a-z]+[^>]*\bid\s*=\s*["']` + errorContainerID + `["'][^>]*>(.*?)</(?:div|ul|section)>`),
	regexp.MustCompile(`(?is)<[a-z]+[^>]*\bclass\s*=\s*["'][^"']*\b` + errorClass + `\b[^"']*["'][^>]*>(.*?)</[a-z]+>`),
	regexp.MustCompile(`(?is)` + failureHeader + `[^<]*(?:</[a-z0-9]+>\s*)+(?:<[a-z]+[^>]*>\s*)*([^<]+)`),
	regexp.MustCompile(`(?is)<(?:span|p|li|div)[^>]*\bclass\s*=\s*["'][^"']*\b(?:error|alert)[a-z-]*\b[^"']*["'][^>]*>(.*?)</(?:span|p|li|div)>`),
}

var (
	tagRe   = regexp.MustCompile(`(?s)<[^>]*>`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// Extractor is stateless and safe for concurrent use.
type Extractor struct {
	log log.Logger
}

func New(logger log.Logger) *Extractor {
	return &Extractor{log: log.With(logger, "component", "diagnose")}
}

// ExtractFromSession tries the live strategies in order and returns the first
// non-empty message, or "".
func (e *Extractor) ExtractFromSession(ctx context.Context, sess session.Session) string {
	for _, s := range liveStrategies {
		found, err := sess.Present(ctx, s.loc)
		if err != nil {
			level.Debug(e.log).Log("msg", "diagnosis probe failed", "strategy", s.name, "err", err)
			continue
		}
		if !found {
			continue
		}

		var text string
		if err := sess.ExecuteScript(ctx, s.script, &text); err != nil {
			level.Debug(e.log).Log("msg", "diagnosis script failed", "strategy", s.name, "err", err)
			continue
		}
		if text = clean(text); text != "" {
			level.Debug(e.log).Log("msg", "extracted error message", "strategy", s.name)
			return text
		}
	}
	return ""
}

// ExtractFromMarkup applies the markup patterns to a captured page source.
func (e *Extractor) ExtractFromMarkup(markup string) string {
	return ExtractFromMarkup(markup)
}

// Extract prefers the live session and falls back to the page source it can still read.
func (e *Extractor) Extract(ctx context.Context, sess session.Session) string {
	if msg := e.ExtractFromSession(ctx, sess); msg != "" {
		return msg
	}

	src, err := sess.PageSource(ctx)
	if err != nil {
		level.Debug(e.log).Log("msg", "page source unavailable for diagnosis", "err", err)
		return ""
	}
	return ExtractFromMarkup(src)
}

func ExtractFromMarkup(markup string) string {
	for _, re := range markupPatterns {
		var parts []string
		for _, m := range re.FindAllStringSubmatch(markup, -1) {
			if t := clean(tagRe.ReplaceAllString(m[1], " ")); t != "" && !lo.Contains(parts, t) {
				parts = append(parts, t)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return ""
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(html.UnescapeString(s), " "))
}
