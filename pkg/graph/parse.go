package graph

import (
	"strings"

	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/common"
	"github.com/OFFIS-RIT/kiwi/graphrag/pkg/logger"
)

// ParseLabeledSections reads oracle output of the form
//
//	Entities:
//	- Alice
//	- Bob
//
//	Relations:
//	- Alice, knows, Bob
//
// Sections are separated by a blank line. Relation lines that do not have
// exactly three comma separated parts are skipped.
func ParseLabeledSections(output string) ([]string, []common.Triple) {
	output = strings.TrimSpace(strings.ReplaceAll(output, "\r\n", "\n"))

	var entities []string
	var relations []common.Triple

	for _, section := range strings.Split(output, "\n\n") {
		section = strings.TrimSpace(section)
		lines := strings.Split(section, "\n")

		switch {
		case strings.HasPrefix(section, "Entities:"):
			entities = entities[:0]
			for _, line := range lines[1:] {
				if name := trimListItem(line); name != "" {
					entities = append(entities, name)
				}
			}
		case strings.HasPrefix(section, "Relations:"):
			for _, line := range lines[1:] {
				item := trimListItem(line)
				if item == "" {
					continue
				}
				parts := strings.Split(item, ",")
				if len(parts) != 3 {
					logger.Warn("[Graph] Skipping invalid relation", "line", line)
					continue
				}
				relations = append(relations, common.Triple{
					Source:   strings.TrimSpace(parts[0]),
					Relation: strings.TrimSpace(parts[1]),
					Target:   strings.TrimSpace(parts[2]),
				})
			}
		}
	}

	return entities, relations
}

func trimListItem(line string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "- "))
}
