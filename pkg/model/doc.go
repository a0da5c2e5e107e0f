// Package model defines the form definition consumed by the schema builder,
// the step controller, and the renderers. A FormDefinition is an ordered list
// of steps, each holding typed fields. Field types are a closed set of
// form-friendly kinds (short-text, email, number, paragraph, select, radio,
// checkbox); unknown kinds degrade to short-text. Validation rules reuse the
// canonical identifiers (min/max, minLength/maxLength, pattern) with string
// parameters so definitions round-trip through JSON and YAML without losing
// precision. Theme tokens travel with the definition and are merged with
// caller overrides by package theme.
package model
