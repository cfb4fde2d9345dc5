package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// schemaPrinter is used to format schema validation error messages.
var schemaPrinter = message.NewPrinter(language.English)

// toolValidators holds the compiled input schema of every exposed tool.
type toolValidators map[string]*jsonschema.Schema

// compileToolSchemas compiles each tool's inline input schema. The schemas
// are authored alongside the tool definitions, so a compile failure is a
// programming error and panics.
func compileToolSchemas(tools []Tool) toolValidators {
	validators := make(toolValidators, len(tools))
	for _, tool := range tools {
		validators[tool.Name] = mustCompileSchema(tool.InputSchema, tool.Name+".json")
	}
	return validators
}

func mustCompileSchema(raw json.RawMessage, name string) *jsonschema.Schema {
	var schemaDoc any
	if err := json.Unmarshal(raw, &schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to parse schema %s: %v", name, err))
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, schemaDoc); err != nil {
		panic(fmt.Sprintf("failed to add %s resource: %v", name, err))
	}

	sch, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("failed to compile %s: %v", name, err))
	}
	return sch
}

// validate checks the raw tool arguments against the tool's schema and
// returns one message per violation, empty when the arguments conform. A nil
// or absent argument object is treated as {}.
func (v toolValidators) validate(name string, args json.RawMessage) []string {
	schema, ok := v[name]
	if !ok {
		return nil
	}
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}

	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return []string{fmt.Sprintf("arguments are not valid JSON: %v", err)}
	}

	err := schema.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{fmt.Sprintf("schema: %v", err)}
	}
	var errs []string
	collectSchemaErrors(ve, &errs)
	return errs
}

func collectSchemaErrors(ve *jsonschema.ValidationError, errs *[]string) {
	if len(ve.Causes) == 0 {
		loc := "/"
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, ve.ErrorKind.LocalizedString(schemaPrinter)))
		return
	}
	for _, c := range ve.Causes {
		collectSchemaErrors(c, errs)
	}
}
