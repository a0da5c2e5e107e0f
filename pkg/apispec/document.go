// Package apispec describes the collaborator endpoints of a form as an
// OpenAPI 3 document and validates submission data against it.
package apispec

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/model"
)

const openAPIVersion = "3.0.3"

type config struct {
	serverURL string
	version   string
}

// Option configures Document.
type Option func(*config)

// WithServerURL adds a server entry, e.g. "https://forms.example.com/api".
func WithServerURL(url string) Option {
	return func(cfg *config) {
		cfg.serverURL = strings.TrimRight(strings.TrimSpace(url), "/")
	}
}

// WithVersion sets info.version (default "1.0.0").
func WithVersion(version string) Option {
	return func(cfg *config) {
		if v := strings.TrimSpace(version); v != "" {
			cfg.version = v
		}
	}
}

// Document builds and validates the OpenAPI description of form's
// collaborator endpoints: fetch, domain verification and submit.
func Document(ctx context.Context, form model.FormDefinition, opts ...Option) (*openapi3.T, error) {
	cfg := config{version: "1.0.0"}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	title := form.Name
	if title == "" {
		title = form.ID
	}
	doc := &openapi3.T{
		OpenAPI: openAPIVersion,
		Info: &openapi3.Info{
			Title:       title,
			Description: form.Description,
			Version:     cfg.version,
		},
	}

	data := DataSchema(form)
	components := openapi3.Schemas{
		"FormDefinition":    openapi3.NewSchemaRef("", formDefinitionSchema()),
		"SubmissionData":    openapi3.NewSchemaRef("", data),
		"SubmissionPayload": openapi3.NewSchemaRef("", payloadSchema(form, data)),
		"SubmitResponse":    openapi3.NewSchemaRef("", submitResponseSchema()),
		"Verification":      openapi3.NewSchemaRef("", verificationSchema()),
		"ErrorResponse":     openapi3.NewSchemaRef("", errorSchema()),
	}
	doc.Components = &openapi3.Components{Schemas: components}
	ref := func(name string) *openapi3.SchemaRef {
		return openapi3.NewSchemaRef("#/components/schemas/"+name, components[name].Value)
	}
	if cfg.serverURL != "" {
		doc.Servers = openapi3.Servers{{URL: cfg.serverURL}}
	}

	formIDParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("formId").
		WithSchema(openapi3.NewStringSchema().WithEnum(form.ID))}

	fetch := openapi3.NewOperation()
	fetch.OperationID = "getForm"
	fetch.Summary = "Fetch the form definition"
	fetch.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, jsonResponse("Form definition", ref("FormDefinition"))),
		openapi3.WithStatus(404, jsonResponse("Form not found", ref("ErrorResponse"))),
	)

	verify := openapi3.NewOperation()
	verify.OperationID = "verifyDomain"
	verify.Summary = "Check whether a domain may embed the form"
	verify.Parameters = openapi3.Parameters{{Value: openapi3.NewQueryParameter("domain").
		WithRequired(true).
		WithSchema(openapi3.NewStringSchema().WithMinLength(1))}}
	verify.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, jsonResponse("Verification result", ref("Verification"))),
	)

	submitOp := openapi3.NewOperation()
	submitOp.OperationID = "submitForm"
	submitOp.Summary = "Submit a completed form"
	submitOp.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(ref("SubmissionPayload"))}
	submitOp.Responses = openapi3.NewResponses(
		openapi3.WithStatus(200, jsonResponse("Submission accepted", ref("SubmitResponse"))),
		openapi3.WithStatus(422, jsonResponse("Submission rejected", ref("ErrorResponse"))),
	)

	doc.Paths = openapi3.NewPaths(
		openapi3.WithPath("/forms/{formId}", &openapi3.PathItem{
			Parameters: openapi3.Parameters{formIDParam},
			Get:        fetch,
		}),
		openapi3.WithPath("/forms/{formId}/verify-domain", &openapi3.PathItem{
			Parameters: openapi3.Parameters{formIDParam},
			Get:        verify,
		}),
		openapi3.WithPath("/forms/{formId}/submit", &openapi3.PathItem{
			Parameters: openapi3.Parameters{formIDParam},
			Post:       submitOp,
		}),
	)

	if err := doc.Validate(ctx, openapi3.DisableSchemaFormatValidation()); err != nil {
		return nil, fmt.Errorf("apispec: form %q: %w", form.ID, err)
	}
	return doc, nil
}

func jsonResponse(description string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	resp := openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchemaRef(schema)
	return &openapi3.ResponseRef{Value: resp}
}

// DataSchema maps every field of form onto a property of the submission
// data object. Unknown keys are rejected.
func DataSchema(form model.FormDefinition) *openapi3.Schema {
	data := openapi3.NewObjectSchema()
	data.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)}
	for _, step := range form.Steps {
		for _, field := range step.Fields {
			if field.ID == "" {
				continue
			}
			data.WithProperty(field.ID, fieldSchema(field))
			if field.Required {
				data.Required = append(data.Required, field.ID)
			}
		}
	}
	return data
}

func fieldSchema(field model.Field) *openapi3.Schema {
	var s *openapi3.Schema
	switch field.Type.Normalize() {
	case model.FieldTypeNumber:
		s = openapi3.NewFloat64Schema()
		for _, rule := range field.Validations {
			value, err := strconv.ParseFloat(rule.Params["value"], 64)
			if err != nil {
				continue
			}
			switch rule.Kind {
			case model.ValidationRuleMin:
				s.WithMin(value)
			case model.ValidationRuleMax:
				s.WithMax(value)
			}
		}
	case model.FieldTypeCheckbox:
		s = openapi3.NewBoolSchema()
		if field.Required {
			s.WithEnum(true)
		}
	case model.FieldTypeSelect, model.FieldTypeRadio:
		s = openapi3.NewStringSchema()
		if len(field.Options) > 0 {
			values := make([]any, 0, len(field.Options))
			for _, option := range field.Options {
				values = append(values, option.Value)
			}
			s.WithEnum(values...)
		}
	default:
		s = openapi3.NewStringSchema()
		if field.Type.Normalize() == model.FieldTypeEmail {
			s.WithFormat("email")
		}
		if field.Required {
			s.WithMinLength(1)
		}
		for _, rule := range field.Validations {
			switch rule.Kind {
			case model.ValidationRuleMinLength:
				if n, err := strconv.ParseInt(rule.Params["value"], 10, 64); err == nil {
					s.WithMinLength(n)
				}
			case model.ValidationRuleMaxLength:
				if n, err := strconv.ParseInt(rule.Params["value"], 10, 64); err == nil {
					s.WithMaxLength(n)
				}
			case model.ValidationRulePattern:
				s.WithPattern(rule.Params["pattern"])
			}
		}
	}
	s.Title = field.DisplayLabel()
	s.Description = field.Description
	return s
}

func payloadSchema(form model.FormDefinition, data *openapi3.Schema) *openapi3.Schema {
	metadata := openapi3.NewObjectSchema().
		WithProperty("source", openapi3.NewStringSchema().WithEnum(string(model.ModePreview), string(model.ModeEmbed))).
		WithProperty("url", openapi3.NewStringSchema()).
		WithProperty("userAgent", openapi3.NewStringSchema()).
		WithProperty("submittedAt", openapi3.NewDateTimeSchema())
	metadata.Required = []string{"source", "submittedAt"}

	payload := openapi3.NewObjectSchema().
		WithProperty("formId", openapi3.NewStringSchema().WithEnum(form.ID)).
		WithPropertyRef("data", openapi3.NewSchemaRef("#/components/schemas/SubmissionData", data)).
		WithProperty("metadata", metadata)
	payload.Required = []string{"formId", "data", "metadata"}
	return payload
}

func submitResponseSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("redirectUrl", openapi3.NewStringSchema()).
		WithProperty("successMessage", openapi3.NewStringSchema())
}

func verificationSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("verified", openapi3.NewBoolSchema()).
		WithProperty("domain", openapi3.NewStringSchema())
	s.Required = []string{"verified"}
	return s
}

func errorSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("errors", openapi3.NewObjectSchema().
			WithAdditionalProperties(openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())))
}

func formDefinitionSchema() *openapi3.Schema {
	option := openapi3.NewObjectSchema().
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewStringSchema())
	rule := openapi3.NewObjectSchema().
		WithProperty("kind", openapi3.NewStringSchema()).
		WithProperty("params", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))
	field := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("type", openapi3.NewStringSchema()).
		WithProperty("required", openapi3.NewBoolSchema()).
		WithProperty("placeholder", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("options", openapi3.NewArraySchema().WithItems(option)).
		WithProperty("validations", openapi3.NewArraySchema().WithItems(rule))
	field.Required = []string{"id", "type"}
	step := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(field))
	step.Required = []string{"id", "fields"}
	theme := openapi3.NewObjectSchema().
		WithProperty("primaryColor", openapi3.NewStringSchema()).
		WithProperty("backgroundColor", openapi3.NewStringSchema()).
		WithProperty("textColor", openapi3.NewStringSchema()).
		WithProperty("borderRadius", openapi3.NewStringSchema())
	form := openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("steps", openapi3.NewArraySchema().WithItems(step)).
		WithProperty("domains", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("theme", theme)
	form.Required = []string{"id", "steps"}
	return form
}
