package roadmap

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RefusalMessage is what the model is told to return for non-technical careers.
const RefusalMessage = "Please enter a technical career path"

// SystemPrompt frames the model as a roadmap generator that only answers with JSON.
func SystemPrompt() string {
	return "You are a senior technical career mentor. You design learning roadmaps for software and technology careers. " +
		"You always answer with a single JSON object and nothing else."
}

// BuildPrompt renders the user prompt for a career. The career is embedded verbatim and
// the schema, level names and language bounds come from the constants Parse enforces.
func BuildPrompt(career string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Create a learning roadmap for the career: %s\n\n", career)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Return exactly %d levels in this order: %s.\n", len(LevelNames), strings.Join(LevelNames[:], ", "))
	fmt.Fprintf(&b, "- Each level lists between %d and %d languages or technologies, most important first.\n", MinLanguages, MaxLanguages)
	b.WriteString("- Every language has name, timeToComplete, description, keyFeatures, useCases and learningResources; alternatives is optional.\n")
	b.WriteString("- keyFeatures, useCases and learningResources each need at least one entry.\n")
	b.WriteString("- Every learningResources url must be an absolute https URL.\n")
	fmt.Fprintf(&b, "- Use emoji %s, %s, %s and color %s, %s, %s for the three levels.\n",
		DefaultEmoji(LevelBeginner), DefaultEmoji(LevelIntermediate), DefaultEmoji(LevelAdvanced),
		Theme(LevelBeginner), Theme(LevelIntermediate), Theme(LevelAdvanced))
	fmt.Fprintf(&b, "- If the career is not a technical career, return only {\"error\": %q}.\n", RefusalMessage)
	b.WriteString("- Respond with JSON only, no markdown fences and no commentary.\n\n")

	b.WriteString("JSON Schema:\n")
	b.WriteString(SchemaDocument())
	b.WriteString("\n\nExample shape:\n")
	b.WriteString(ExampleJSON(career))
	b.WriteString("\n")

	return b.String()
}

// ExampleJSON returns a minimal valid roadmap document used to show the model the shape.
func ExampleJSON(career string) string {
	encoded, err := json.MarshalIndent(exampleRoadmap(career), "", "  ")
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func exampleRoadmap(career string) RoadmapData {
	if strings.TrimSpace(career) == "" {
		career = "Software Developer"
	}
	data := RoadmapData{Career: career}
	for _, name := range LevelNames {
		level := RoadmapLevel{
			Level: name,
			Emoji: DefaultEmoji(name),
			Color: Theme(name),
		}
		for i := 0; i < MinLanguages; i++ {
			level.Languages = append(level.Languages, LanguageNode{
				Name:           fmt.Sprintf("%s technology %d", name, i+1),
				TimeToComplete: "2-3 months",
				Alternatives:   []string{"Comparable technology"},
				Description:    "One or two sentences on why it matters for this career.",
				KeyFeatures:    []string{"Key feature"},
				UseCases:       []string{"Typical use case"},
				LearningResources: []LearningResource{
					{Name: "Official documentation", URL: "https://example.com/docs"},
				},
			})
		}
		data.Levels = append(data.Levels, level)
	}
	return data
}
