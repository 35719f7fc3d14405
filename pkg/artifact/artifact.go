// Package artifact names and describes documents produced by a run.
package artifact

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

type Visibility string

const (
	VisibilityClient   Visibility = "client"
	VisibilityInternal Visibility = "internal"
)

// DefaultNamespace is the leading path element used when none is configured.
const DefaultNamespace = "filings"

const (
	PurposeLetter      = "ein-letter"
	PurposeFailure     = "failure"
	PurposeConsoleLogs = "console-logs"

	ContentTypePDF  = "application/pdf"
	ContentTypeJSON = "application/json"
)

type Artifact struct {
	Name        string
	Purpose     string
	ContentType string
	Visibility  Visibility
	Data        []byte
	URL         string
}

// FileName is the last path element of the object name.
func (a Artifact) FileName() string {
	return path.Base(a.Name)
}

// Hidden reports whether the artifact must stay out of client views.
func (a Artifact) Hidden() bool {
	return a.Visibility != VisibilityClient
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a stable path element from an entity name.
func Slug(entityName string) string {
	s := nonAlnum.ReplaceAllString(strings.ToLower(entityName), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "entity"
	}
	return s
}

// Name builds {namespace}/{record-id}/{entity-slug}-{purpose}.{ext}.
func Name(namespace, recordID, entityName, purpose, ext string) string {
	return fmt.Sprintf("%s/%s/%s-%s.%s", namespace, recordID, Slug(entityName), purpose, ext)
}

// AuditName builds {namespace}/{record-id}/{entity-slug}_data.json.
func AuditName(namespace, recordID, entityName string) string {
	return fmt.Sprintf("%s/%s/%s_data.json", namespace, recordID, Slug(entityName))
}

// ExtensionFor maps a content type to the file extension used in object names.
func ExtensionFor(contentType string) string {
	switch contentType {
	case ContentTypePDF:
		return "pdf"
	case ContentTypeJSON:
		return "json"
	default:
		return "bin"
	}
}

// VisibilityFor returns the visibility a purpose is published with.
func VisibilityFor(purpose string) Visibility {
	if purpose == PurposeLetter {
		return VisibilityClient
	}
	return VisibilityInternal
}
