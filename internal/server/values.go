package server

import (
	"mime"
	"net/http"
	"net/url"

	"github.com/goliatone/go-formflow/pkg/model"
)

// parseBody fills r.PostForm from url-encoded or multipart bodies.
func parseBody(r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}

// stepValues picks the posted values of step's fields. Fields missing from
// the post are left out so the schema can tell absent from empty; the last
// value wins when a name repeats.
func stepValues(step model.Step, form url.Values) map[string]any {
	values := make(map[string]any, len(step.Fields))
	for _, field := range step.Fields {
		posted, ok := form[field.ID]
		if !ok || len(posted) == 0 {
			continue
		}
		values[field.ID] = posted[len(posted)-1]
	}
	return values
}

// redirectTarget resolves site-relative redirects against the page hosting
// the embed so the browser lands on the host site, not on the embed server.
func redirectTarget(redirect, pageURL string) string {
	target, err := url.Parse(redirect)
	if err != nil || target.IsAbs() || pageURL == "" {
		return redirect
	}
	base, err := url.Parse(pageURL)
	if err != nil || !base.IsAbs() {
		return redirect
	}
	return base.ResolveReference(target).String()
}
