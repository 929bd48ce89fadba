package roadmap

import "strings"

// Level names in progression order. A valid roadmap carries exactly these, in this order.
const (
	LevelBeginner     = "Beginner"
	LevelIntermediate = "Intermediate"
	LevelAdvanced     = "Advanced"
)

// Bounds on the number of language entries per level.
const (
	MinLanguages = 2
	MaxLanguages = 4
)

// LevelNames lists the required level sequence.
var LevelNames = [...]string{LevelBeginner, LevelIntermediate, LevelAdvanced}

// RoadmapData is a validated three-level learning roadmap for a career.
type RoadmapData struct {
	Career string         `json:"career"`
	Levels []RoadmapLevel `json:"levels"`
}

// RoadmapLevel groups the technologies for one progression stage.
type RoadmapLevel struct {
	Level     string         `json:"level"`
	Emoji     string         `json:"emoji"`
	Color     string         `json:"color"`
	Languages []LanguageNode `json:"languages"`
}

// LanguageNode is one technology entry within a level.
type LanguageNode struct {
	Name              string             `json:"name"`
	TimeToComplete    string             `json:"timeToComplete"`
	Alternatives      []string           `json:"alternatives,omitempty"`
	Description       string             `json:"description"`
	KeyFeatures       []string           `json:"keyFeatures"`
	UseCases          []string           `json:"useCases"`
	LearningResources []LearningResource `json:"learningResources"`
}

// LearningResource links to external study material.
type LearningResource struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Clone returns a deep copy so callers can hand out roadmaps without sharing slices.
func (r RoadmapData) Clone() RoadmapData {
	out := RoadmapData{Career: r.Career}
	if r.Levels == nil {
		return out
	}
	out.Levels = make([]RoadmapLevel, len(r.Levels))
	for i, level := range r.Levels {
		copied := level
		if level.Languages != nil {
			copied.Languages = make([]LanguageNode, len(level.Languages))
			for j, lang := range level.Languages {
				copied.Languages[j] = lang.clone()
			}
		}
		out.Levels[i] = copied
	}
	return out
}

func (n LanguageNode) clone() LanguageNode {
	out := n
	out.Alternatives = cloneStrings(n.Alternatives)
	out.KeyFeatures = cloneStrings(n.KeyFeatures)
	out.UseCases = cloneStrings(n.UseCases)
	if n.LearningResources != nil {
		out.LearningResources = append([]LearningResource(nil), n.LearningResources...)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

// Theme returns the default color key the rendering layer uses for a level.
func Theme(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "beginner":
		return "blue"
	case "intermediate":
		return "purple"
	default:
		return "gold"
	}
}

// DefaultEmoji returns the conventional glyph for a level.
func DefaultEmoji(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "beginner":
		return "🎯"
	case "intermediate":
		return "⚡"
	default:
		return "🎮"
	}
}
