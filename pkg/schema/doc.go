// Package schema turns the field list of a single step into a validation
// schema. Build is a pure function: each declared field type maps onto one
// Rule variant (text, email, number, boolean) and the resulting StepSchema
// validates and cleans a map of raw values keyed by field id. Failures are
// reported per field with human-readable messages; nothing is raised at build
// time.
package schema
