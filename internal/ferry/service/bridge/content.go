package bridge

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiosk404/ferry/internal/ferry/service/agent/domain/entity"
)

var (
	mentionPattern = regexp.MustCompile(`@\S+\s*`)
	tagPatterns    = map[string]*regexp.Regexp{
		"reply": regexp.MustCompile(`(?s)<reply>(.*?)</reply>`),
		"ask":   regexp.MustCompile(`(?s)<ask>(.*?)</ask>`),
	}
)

// CleanContent strips @mentions and surrounding whitespace.
func CleanContent(s string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(s, ""))
}

// ExtractTags returns the trimmed, non-empty bodies of <tag>…</tag>.
func ExtractTags(content, tag string) []string {
	re, ok := tagPatterns[tag]
	if !ok {
		re = regexp.MustCompile(`(?s)<` + regexp.QuoteMeta(tag) + `>(.*?)</` + regexp.QuoteMeta(tag) + `>`)
	}
	var result []string
	for _, m := range re.FindAllStringSubmatch(content, -1) {
		if s := strings.TrimSpace(m[1]); s != "" {
			result = append(result, s)
		}
	}
	return result
}

// FormatQuestion renders a clarification question with numbered options.
func FormatQuestion(q entity.Question, hint string) string {
	text := q.Question
	if text == "" {
		text = "请选择"
	}
	lines := []string{text, ""}
	for i, opt := range q.Options {
		if opt.Description != "" {
			lines = append(lines, fmt.Sprintf("%d. %s - %s", i+1, opt.Label, opt.Description))
		} else {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, opt.Label))
		}
	}
	if hint != "" {
		lines = append(lines, "", hint)
	}
	return strings.Join(lines, "\n")
}

// ResolveAnswer maps a numeric reply to the label of the matching option of
// the first question that has options. Other replies are returned as is.
func ResolveAnswer(questions []entity.Question, reply string) string {
	n, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return reply
	}
	for _, q := range questions {
		if len(q.Options) == 0 {
			continue
		}
		if n >= 1 && n <= len(q.Options) {
			return q.Options[n-1].Label
		}
		return reply
	}
	return reply
}
