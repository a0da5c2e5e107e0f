// Package template defines the template engine seam used by the HTML
// renderers.
package template

import "io"

// TemplateRenderer mirrors the github.com/goliatone/go-template engine
// contract.
type TemplateRenderer interface {
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}
