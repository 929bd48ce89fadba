package roadmap

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemaCompiles(t *testing.T) {
	schema, err := Schema()
	require.NoError(t, err)
	require.NotNil(t, schema)
}

func TestValidateDocumentRejectsViolations(t *testing.T) {
	cases := []struct {
		name   string
		edit   func(root map[string]any)
		prefix string
	}{
		{"wrong order", func(r map[string]any) {
			levels := r["levels"].([]any)
			levels[0], levels[2] = levels[2], levels[0]
		}, "levels["},
		{"too many languages", func(r map[string]any) {
			level := levelAt(r, 1)
			langs := level["languages"].([]any)
			level["languages"] = append(langs, langs[0], langs[0], langs[0])
		}, "levels[1].languages"},
		{"relative url", func(r map[string]any) {
			languageAt(r, 2, 0)["learningResources"] = []any{map[string]any{"name": "Docs", "url": "docs/intro"}}
		}, "levels[2].languages[0].learningResources[0].url"},
		{"blank description", func(r map[string]any) { languageAt(r, 0, 0)["description"] = "   " }, "levels[0].languages[0].description"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ValidateDocument([]byte(mutate(t, tc.edit)))
			require.ErrorIs(t, err, ErrSchemaViolation)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			require.True(t, strings.HasPrefix(perr.Path, tc.prefix), "path %q should start with %q", perr.Path, tc.prefix)
		})
	}
}

func TestValidateDocumentRejectsMalformed(t *testing.T) {
	_, err := ValidateDocument([]byte(`{"career": "x",`))
	require.ErrorIs(t, err, ErrMalformedJSON)
}

func TestPointerToPath(t *testing.T) {
	require.Equal(t, "", pointerToPath(""))
	require.Equal(t, "levels[0].languages[1].url", pointerToPath("/levels/0/languages/1/url"))
	require.Equal(t, "a/b", pointerToPath("/a~1b"))
}

func TestValidateDocumentAgreesWithParse(t *testing.T) {
	cases := []struct {
		name string
		edit func(root map[string]any)
		path string
	}{
		{"no-break space description", func(r map[string]any) { languageAt(r, 0, 0)["description"] = "\u00a0" }, "levels[0].languages[0].description"},
		{"ideographic space feature", func(r map[string]any) { languageAt(r, 1, 0)["keyFeatures"] = []any{"\u3000"} }, "levels[1].languages[0].keyFeatures[0]"},
		{"no-break space career", func(r map[string]any) { r["career"] = "\u00a0\u00a0" }, "career"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := mutate(t, tc.edit)

			_, err := Parse(doc, "")
			requireViolation(t, err, tc.path)

			_, err = ValidateDocument([]byte(doc))
			requireViolation(t, err, tc.path)
		})
	}
}

func TestValidateDocumentMatchesParseOnValidInput(t *testing.T) {
	doc := validRoadmapJSON(t)

	parsed, err := Parse(doc, "")
	require.NoError(t, err)
	validated, err := ValidateDocument([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, parsed.Roadmap, validated)
}
