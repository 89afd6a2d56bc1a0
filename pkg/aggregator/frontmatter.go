package aggregator

import (
	"strings"

	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---"

// ParseFrontMatter splits a leading YAML block fenced by "---" lines from a
// markdown document. It returns nil front matter and the unchanged content
// when there is no block or the block is not a YAML mapping.
func ParseFrontMatter(content string) (map[string]any, string) {
	text := strings.TrimPrefix(content, "\ufeff")
	first, rest, ok := cutLine(text)
	if !ok || strings.TrimSpace(first) != frontMatterFence {
		return nil, content
	}

	var block []string
	for {
		line, after, more := cutLine(rest)
		if strings.TrimSpace(line) == frontMatterFence {
			var meta map[string]any
			if err := yaml.Unmarshal([]byte(strings.Join(block, "\n")), &meta); err != nil || meta == nil {
				return nil, content
			}
			return meta, strings.TrimLeft(after, "\r\n")
		}
		if !more {
			return nil, content
		}
		block = append(block, line)
		rest = after
	}
}

// cutLine splits s at its first newline, dropping a trailing "\r".
func cutLine(s string) (line, rest string, found bool) {
	line, rest, found = strings.Cut(s, "\n")
	return strings.TrimSuffix(line, "\r"), rest, found
}
