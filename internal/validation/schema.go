// Package validation checks inbound coordination payloads against the
// embedded JSON schemas before they reach the coordination pipeline.
package validation

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Strob0t/MailWarden/internal/domain"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const coordinationRequestSchema = "coordination_request.schema.json"

var printer = message.NewPrinter(language.English)

var requestSchema = mustCompile(coordinationRequestSchema)

func mustCompile(name string) *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		panic(fmt.Sprintf("read embedded %s: %v", name, err))
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse embedded %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, doc); err != nil {
		panic(fmt.Sprintf("add %s resource: %v", name, err))
	}
	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return sch
}

// Error lists every schema violation found in a payload.
type Error struct {
	Violations []string
}

func (e *Error) Error() string {
	return "invalid coordination request: " + strings.Join(e.Violations, "; ")
}

// Unwrap lets callers match schema failures against domain.ErrValidation.
func (e *Error) Unwrap() error {
	return domain.ErrValidation
}

// CoordinationRequest validates a raw JSON coordination request. It returns
// an *Error describing all violations, or a plain error when the payload
// is not JSON at all.
func CoordinationRequest(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return validate(requestSchema, doc)
}

func validate(schema *jsonschema.Schema, instance any) error {
	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &Error{Violations: []string{err.Error()}}
	}
	out := &Error{}
	collect(ve, &out.Violations)
	return out
}

func collect(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(printer)))
		return
	}
	for _, c := range ve.Causes {
		collect(c, errs)
	}
}
