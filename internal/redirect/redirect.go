// Package redirect picks where a browser goes after a successful create or update.
package redirect

import (
	"net/url"
	"strings"
)

// Form signals submitted by the extra save buttons.
const (
	AddAnother = "add_another"
	Continue   = "continue_url"
)

// Target knows the three destinations of an entity.
type Target interface {
	AddAnotherURL() string
	AbsoluteURL() string
	ListURL() string
}

// Routes is the Target of entities served under Base with the standard
// /create, /update/{id} and /list routes.
type Routes struct {
	Base string
	ID   string
}

func (r Routes) AddAnotherURL() string {
	return r.Base + "/create"
}

func (r Routes) AbsoluteURL() string {
	return r.Base + "/update/" + r.ID
}

func (r Routes) ListURL() string {
	return r.Base + "/list"
}

func (r Routes) DeleteURL() string {
	return r.Base + "/delete/" + r.ID
}

// Resolve honours at most one signal: add another wins over continue, and
// the list is the fallback.
func Resolve(form url.Values, t Target) string {
	switch {
	case signalled(form, AddAnother):
		return t.AddAnotherURL()
	case signalled(form, Continue):
		return t.AbsoluteURL()
	default:
		return t.ListURL()
	}
}

func signalled(form url.Values, name string) bool {
	return strings.TrimSpace(form.Get(name)) != ""
}

// SafeNext accepts only local absolute paths, so a next parameter cannot
// send the user to another host.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	return next
}
