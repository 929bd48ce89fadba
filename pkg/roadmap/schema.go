package roadmap

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://skillpath.dev/schemas/roadmap.json"

var (
	schemaOnce     sync.Once
	schemaDoc      string
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// SchemaDocument returns the JSON Schema (draft 2020-12) for a roadmap. It is generated
// from the same constants Parse validates against and is embedded in the prompt.
func SchemaDocument() string {
	loadSchema()
	return schemaDoc
}

// Schema returns the compiled roadmap schema.
func Schema() (*jsonschema.Schema, error) {
	loadSchema()
	return compiledSchema, schemaErr
}

// ValidateDocument checks an externally supplied roadmap document against the schema and
// then applies the same field rules as Parse. Violations are reported as *ParseError with
// KindSchemaViolation.
func ValidateDocument(doc []byte) (RoadmapData, error) {
	schema, err := Schema()
	if err != nil {
		return RoadmapData{}, fmt.Errorf("compile roadmap schema: %w", err)
	}

	var tree any
	decoder := json.NewDecoder(bytes.NewReader(doc))
	decoder.UseNumber()
	if err := decoder.Decode(&tree); err != nil {
		return RoadmapData{}, &ParseError{Kind: KindMalformedJSON, Message: err.Error(), Snippet: snippet(string(doc)), Err: err}
	}

	if err := schema.Validate(tree); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			leaf := deepestCause(verr)
			return RoadmapData{}, &ParseError{
				Kind:    KindSchemaViolation,
				Path:    pointerToPath(leaf.InstanceLocation),
				Message: leaf.Message,
				Err:     err,
			}
		}
		return RoadmapData{}, fmt.Errorf("validate roadmap document: %w", err)
	}

	// The schema gives instance paths for structural problems; the field walk Parse uses
	// stays the authority on string content so both entry points accept the same documents.
	root, ok := tree.(map[string]any)
	if !ok {
		return RoadmapData{}, &ParseError{Kind: KindMalformedJSON, Message: "top-level value is not an object", Snippet: snippet(string(doc))}
	}
	data, perr := decodeRoadmap(root)
	if perr != nil {
		perr.Snippet = snippet(string(doc))
		return RoadmapData{}, perr
	}
	return data, nil
}

func loadSchema() {
	schemaOnce.Do(func() {
		encoded, err := json.MarshalIndent(buildSchema(), "", "  ")
		if err != nil {
			schemaErr = err
			return
		}
		schemaDoc = string(encoded)

		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaDoc)); err != nil {
			schemaErr = err
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
}

func buildSchema() map[string]any {
	prefix := make([]any, 0, len(LevelNames))
	for _, name := range LevelNames {
		prefix = append(prefix, map[string]any{
			"$ref": "#/$defs/level",
			"properties": map[string]any{
				"level": map[string]any{"const": name},
			},
		})
	}

	text := map[string]any{"$ref": "#/$defs/text"}
	textList := map[string]any{"$ref": "#/$defs/textList"}

	return map[string]any{
		"$schema":              "https://json-schema.org/draft/2020-12/schema",
		"$id":                  schemaURL,
		"title":                "RoadmapData",
		"type":                 "object",
		"required":             []string{"career", "levels"},
		"additionalProperties": true,
		"properties": map[string]any{
			"career": text,
			"levels": map[string]any{
				"type":        "array",
				"minItems":    len(LevelNames),
				"maxItems":    len(LevelNames),
				"prefixItems": prefix,
				"items":       false,
			},
		},
		"$defs": map[string]any{
			"text": map[string]any{"type": "string", "pattern": `\S`},
			"textList": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    text,
			},
			"level": map[string]any{
				"type":     "object",
				"required": []string{"level", "emoji", "color", "languages"},
				"properties": map[string]any{
					"level": map[string]any{"type": "string"},
					"emoji": text,
					"color": text,
					"languages": map[string]any{
						"type":     "array",
						"minItems": MinLanguages,
						"maxItems": MaxLanguages,
						"items":    map[string]any{"$ref": "#/$defs/language"},
					},
				},
			},
			"language": map[string]any{
				"type":     "object",
				"required": []string{"name", "timeToComplete", "description", "keyFeatures", "useCases", "learningResources"},
				"properties": map[string]any{
					"name":           text,
					"timeToComplete": text,
					"alternatives": map[string]any{
						"type":  "array",
						"items": text,
					},
					"description": text,
					"keyFeatures": textList,
					"useCases":    textList,
					"learningResources": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items":    map[string]any{"$ref": "#/$defs/resource"},
					},
				},
			},
			"resource": map[string]any{
				"type":     "object",
				"required": []string{"name", "url"},
				"properties": map[string]any{
					"name": text,
					"url": map[string]any{
						"type":    "string",
						"format":  "uri",
						"pattern": `^[A-Za-z][A-Za-z0-9+.-]*://[^\s/]+`,
					},
				},
			},
		},
	}
}

func deepestCause(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	for len(err.Causes) > 0 {
		err = err.Causes[0]
	}
	return err
}

// pointerToPath converts a JSON pointer such as /levels/0/languages into levels[0].languages.
func pointerToPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return ""
	}
	var b strings.Builder
	for _, token := range strings.Split(pointer, "/") {
		token = strings.ReplaceAll(strings.ReplaceAll(token, "~1", "/"), "~0", "~")
		if isIndex(token) {
			b.WriteString("[" + token + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(token)
	}
	return b.String()
}

func isIndex(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
