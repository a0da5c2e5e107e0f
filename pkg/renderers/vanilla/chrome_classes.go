package vanilla

// ChromeClass is a typed identifier for semantic chrome CSS classes. The
// default stylesheet targets these names.
type ChromeClass string

const (
	ClassEmbed    ChromeClass = "formflow-embed"
	ClassForm     ChromeClass = "formflow-form"
	ClassHeader   ChromeClass = "formflow-header"
	ClassField    ChromeClass = "formflow-field"
	ClassActions  ChromeClass = "formflow-actions"
	ClassErrors   ChromeClass = "formflow-errors"
	ClassNotice   ChromeClass = "formflow-notice"
	ClassRequired ChromeClass = "formflow-required"
)
