package roadmap

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// fencePattern matches code fence lines only, so backticks inside JSON strings survive.
var fencePattern = regexp.MustCompile("(?m)^[ \t]*```[A-Za-z0-9_-]*[ \t\r]*$")

// Result is a successfully parsed roadmap plus non-fatal observations.
type Result struct {
	Roadmap RoadmapData
	// Warnings lists non-fatal findings such as the model renaming the career.
	Warnings []string
}

// Parse turns a raw completion into a validated roadmap.
//
// The text may carry code fences, prose around the JSON and control characters. The
// candidate JSON is the widest span from the first '{' to the last '}'; text with no '{'
// at all is KindNoJSONFound while an unterminated object is KindMalformedJSON. Malformed input
// never panics; it yields a *ParseError whose Kind tells the caller how to react.
// expectedCareer is only compared against the parsed career and reported as a warning.
func Parse(raw, expectedCareer string) (Result, error) {
	cleaned := Clean(raw)

	start := strings.Index(cleaned, "{")
	if start < 0 {
		return Result{}, &ParseError{
			Kind:    KindNoJSONFound,
			Message: "response contains no json object",
			Snippet: snippet(cleaned),
		}
	}
	end := strings.LastIndex(cleaned, "}")
	if end < start {
		// An opening brace with no closing one is a truncated object, usually a token limit cut.
		return Result{}, &ParseError{
			Kind:    KindMalformedJSON,
			Message: "unterminated json object",
			Snippet: snippet(cleaned[start:]),
		}
	}
	candidate := cleaned[start : end+1]

	var tree any
	if err := json.Unmarshal([]byte(candidate), &tree); err != nil {
		return Result{}, &ParseError{
			Kind:    KindMalformedJSON,
			Message: err.Error(),
			Snippet: snippet(candidate),
			Err:     err,
		}
	}

	root, ok := tree.(map[string]any)
	if !ok {
		return Result{}, &ParseError{Kind: KindMalformedJSON, Message: "top-level value is not an object", Snippet: snippet(candidate)}
	}

	if refusal, ok := root["error"]; ok {
		return Result{}, &ParseError{
			Kind:    KindUpstreamRefusal,
			Message: refusalMessage(refusal),
			Snippet: snippet(candidate),
		}
	}

	data, perr := decodeRoadmap(root)
	if perr != nil {
		perr.Snippet = snippet(candidate)
		return Result{}, perr
	}

	result := Result{Roadmap: data}
	if expected := strings.TrimSpace(expectedCareer); expected != "" && !CareerMatches(expected, data.Career) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("career %q does not match requested %q", data.Career, expected))
	}
	return result, nil
}

// Clean removes code fence markers and control characters from a completion.
func Clean(raw string) string {
	withoutFences := fencePattern.ReplaceAllString(raw, "")
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Cc, r) {
			return -1
		}
		return r
	}, withoutFences)
}

// CareerMatches reports whether a parsed career plausibly names the requested one.
// Comparison ignores case and spacing and accepts either name containing the other.
func CareerMatches(expected, actual string) bool {
	e := normalizeCareer(expected)
	a := normalizeCareer(actual)
	if e == "" || a == "" {
		return e == a
	}
	return strings.Contains(a, e) || strings.Contains(e, a)
}

// NormalizeCareer folds case and whitespace so equivalent inputs share cache keys.
func NormalizeCareer(career string) string {
	return normalizeCareer(career)
}

func normalizeCareer(career string) string {
	return strings.ToLower(strings.Join(strings.Fields(career), " "))
}

func refusalMessage(value any) string {
	switch v := value.(type) {
	case string:
		if msg := strings.TrimSpace(v); msg != "" {
			return msg
		}
	case nil:
	default:
		if encoded, err := json.Marshal(v); err == nil {
			return string(encoded)
		}
	}
	return "model returned an empty error"
}

func decodeRoadmap(root map[string]any) (RoadmapData, *ParseError) {
	career, perr := requiredString(root, "career", "")
	if perr != nil {
		return RoadmapData{}, perr
	}

	rawLevels, perr := requiredArray(root, "levels", "")
	if perr != nil {
		return RoadmapData{}, perr
	}
	if len(rawLevels) != len(LevelNames) {
		return RoadmapData{}, violation("levels", fmt.Sprintf("expected exactly %d levels, got %d", len(LevelNames), len(rawLevels)))
	}

	levelObjects := make([]map[string]any, len(rawLevels))
	for i, raw := range rawLevels {
		path := index("levels", i)
		obj, ok := raw.(map[string]any)
		if !ok {
			return RoadmapData{}, violation(path, "must be an object")
		}
		name, perr := requiredString(obj, "level", path)
		if perr != nil {
			return RoadmapData{}, perr
		}
		if name != LevelNames[i] {
			return RoadmapData{}, violation(field(path, "level"), fmt.Sprintf("expected %q, got %q", LevelNames[i], name))
		}
		levelObjects[i] = obj
	}

	data := RoadmapData{Career: career, Levels: make([]RoadmapLevel, 0, len(levelObjects))}
	for i, obj := range levelObjects {
		level, perr := decodeLevel(obj, index("levels", i))
		if perr != nil {
			return RoadmapData{}, perr
		}
		data.Levels = append(data.Levels, level)
	}
	return data, nil
}

func decodeLevel(obj map[string]any, path string) (RoadmapLevel, *ParseError) {
	level := RoadmapLevel{Level: obj["level"].(string)}

	var perr *ParseError
	if level.Emoji, perr = requiredString(obj, "emoji", path); perr != nil {
		return RoadmapLevel{}, perr
	}
	if level.Color, perr = requiredString(obj, "color", path); perr != nil {
		return RoadmapLevel{}, perr
	}

	rawLanguages, perr := requiredArray(obj, "languages", path)
	if perr != nil {
		return RoadmapLevel{}, perr
	}
	languagesPath := field(path, "languages")
	if len(rawLanguages) < MinLanguages || len(rawLanguages) > MaxLanguages {
		return RoadmapLevel{}, violation(languagesPath, fmt.Sprintf("expected %d-%d languages, got %d", MinLanguages, MaxLanguages, len(rawLanguages)))
	}

	level.Languages = make([]LanguageNode, 0, len(rawLanguages))
	for i, raw := range rawLanguages {
		langPath := index(languagesPath, i)
		langObj, ok := raw.(map[string]any)
		if !ok {
			return RoadmapLevel{}, violation(langPath, "must be an object")
		}
		lang, perr := decodeLanguage(langObj, langPath)
		if perr != nil {
			return RoadmapLevel{}, perr
		}
		level.Languages = append(level.Languages, lang)
	}
	return level, nil
}

func decodeLanguage(obj map[string]any, path string) (LanguageNode, *ParseError) {
	var (
		node LanguageNode
		perr *ParseError
	)

	if node.Name, perr = requiredString(obj, "name", path); perr != nil {
		return LanguageNode{}, perr
	}
	if node.TimeToComplete, perr = requiredString(obj, "timeToComplete", path); perr != nil {
		return LanguageNode{}, perr
	}
	if raw, ok := obj["alternatives"]; ok && raw != nil {
		if node.Alternatives, perr = stringList(raw, field(path, "alternatives"), 0); perr != nil {
			return LanguageNode{}, perr
		}
		if len(node.Alternatives) == 0 {
			node.Alternatives = nil
		}
	}
	if node.Description, perr = requiredString(obj, "description", path); perr != nil {
		return LanguageNode{}, perr
	}
	if node.KeyFeatures, perr = requiredStringList(obj, "keyFeatures", path); perr != nil {
		return LanguageNode{}, perr
	}
	if node.UseCases, perr = requiredStringList(obj, "useCases", path); perr != nil {
		return LanguageNode{}, perr
	}

	rawResources, perr := requiredArray(obj, "learningResources", path)
	if perr != nil {
		return LanguageNode{}, perr
	}
	resourcesPath := field(path, "learningResources")
	if len(rawResources) == 0 {
		return LanguageNode{}, violation(resourcesPath, "at least one entry is required")
	}
	node.LearningResources = make([]LearningResource, 0, len(rawResources))
	for i, raw := range rawResources {
		resourcePath := index(resourcesPath, i)
		resourceObj, ok := raw.(map[string]any)
		if !ok {
			return LanguageNode{}, violation(resourcePath, "must be an object")
		}
		var resource LearningResource
		if resource.Name, perr = requiredString(resourceObj, "name", resourcePath); perr != nil {
			return LanguageNode{}, perr
		}
		if resource.URL, perr = requiredString(resourceObj, "url", resourcePath); perr != nil {
			return LanguageNode{}, perr
		}
		if !IsAbsoluteURL(resource.URL) {
			return LanguageNode{}, violation(field(resourcePath, "url"), fmt.Sprintf("%q is not an absolute url", resource.URL))
		}
		node.LearningResources = append(node.LearningResources, resource)
	}

	return node, nil
}

// IsAbsoluteURL reports whether value parses as a URL with both scheme and host.
// Reachability is never checked.
func IsAbsoluteURL(value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed != value || strings.ContainsAny(value, " \t") {
		return false
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return parsed.IsAbs() && parsed.Host != ""
}

func requiredString(obj map[string]any, key, parent string) (string, *ParseError) {
	path := field(parent, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		return "", violation(path, "is required")
	}
	value, ok := raw.(string)
	if !ok {
		return "", violation(path, "must be a string")
	}
	if strings.TrimSpace(value) == "" {
		return "", violation(path, "must not be empty")
	}
	return value, nil
}

func requiredArray(obj map[string]any, key, parent string) ([]any, *ParseError) {
	path := field(parent, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, violation(path, "is required")
	}
	values, ok := raw.([]any)
	if !ok {
		return nil, violation(path, "must be an array")
	}
	return values, nil
}

func requiredStringList(obj map[string]any, key, parent string) ([]string, *ParseError) {
	path := field(parent, key)
	raw, ok := obj[key]
	if !ok || raw == nil {
		return nil, violation(path, "is required")
	}
	return stringList(raw, path, 1)
}

func stringList(raw any, path string, min int) ([]string, *ParseError) {
	values, ok := raw.([]any)
	if !ok {
		return nil, violation(path, "must be an array")
	}
	if len(values) < min {
		return nil, violation(path, fmt.Sprintf("at least %d entry is required", min))
	}
	out := make([]string, 0, len(values))
	for i, value := range values {
		str, ok := value.(string)
		if !ok {
			return nil, violation(index(path, i), "must be a string")
		}
		if strings.TrimSpace(str) == "" {
			return nil, violation(index(path, i), "must not be empty")
		}
		out = append(out, str)
	}
	return out, nil
}

func field(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func index(path string, i int) string {
	return fmt.Sprintf("%s[%d]", path, i)
}
