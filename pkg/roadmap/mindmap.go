package roadmap

import (
	"fmt"
	"regexp"
	"strings"
)

var nodeIDPattern = regexp.MustCompile(`[^A-Za-z0-9]`)

// RenderMindmap renders a roadmap as Mermaid mindmap source.
func RenderMindmap(data RoadmapData) string {
	var b strings.Builder
	b.WriteString("mindmap\n")
	fmt.Fprintf(&b, "  root((%s))\n", mindmapLabel(data.Career))

	for i, level := range data.Levels {
		levelID := fmt.Sprintf("L%d_%s", i, nodeID(level.Level))
		fmt.Fprintf(&b, "    %s[\"%s %s\"]\n", levelID, mindmapLabel(level.Emoji), mindmapLabel(level.Level))
		for j, lang := range level.Languages {
			langID := fmt.Sprintf("%s_%d_%s", levelID, j, nodeID(lang.Name))
			fmt.Fprintf(&b, "      %s(\"%s · %s\")\n", langID, mindmapLabel(lang.Name), mindmapLabel(lang.TimeToComplete))
		}
	}
	return b.String()
}

func nodeID(text string) string {
	return nodeIDPattern.ReplaceAllString(text, "_")
}

func mindmapLabel(text string) string {
	replacer := strings.NewReplacer(`"`, "'", "(", " ", ")", " ", "[", " ", "]", " ", "\n", " ")
	return strings.TrimSpace(replacer.Replace(text))
}
