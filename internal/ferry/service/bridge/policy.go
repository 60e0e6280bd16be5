package bridge

import (
	"strings"
	"unicode/utf8"
)

// Texts are the user facing strings of the translator. {robot} is replaced
// with the robot mention.
type Texts struct {
	NoActiveTask       string
	Stopped            string
	StopFailed         string
	AgentError         string
	ProcessingFailed   string
	Fallback           string
	SessionEstablished string
	ImagesFollow       string
	ReplyHint          string
	AskHint            string
	QuestionHint       string
}

// DefaultTexts returns the built-in strings. SessionEstablished is empty,
// so no acknowledgment is sent by default.
func DefaultTexts() Texts {
	return Texts{
		NoActiveTask:     "当前没有正在运行的任务",
		Stopped:          "✅ 已停止当前任务",
		StopFailed:       "⚠️ 停止失败，会话可能已结束",
		AgentError:       "抱歉，处理时出现错误，请稍后再试。",
		ProcessingFailed: "抱歉，处理消息时出现错误，请稍后再试。",
		Fallback:         "抱歉，未能获取到答案，请稍后再试。",
		ImagesFollow:     "\n\n（具体图片请查看下方消息）",
		ReplyHint:        "\n\n👉 如还有疑问，可直接回复本消息",
		AskHint:          "\n\n【注】请 {robot} 回复",
		QuestionHint:     "请选项编号或文字回复。【注】不可直接回复本消息，需 {robot} 回复",
	}
}

// Policy holds the per-channel behaviour of the translator.
type Policy struct {
	// FAQ maps a question to a canned answer. Keys match case-insensitively.
	FAQ map[string]string

	StopKeywords  []string
	MaxStopLength int

	DefaultSkill string
	TenantID     string
	Language     string

	// Verbose forwards raw assistant output instead of tagged segments.
	Verbose bool

	// ImagesPerCard caps the images of one structured card.
	ImagesPerCard int
	// AssetBaseURL prefixes relative knowledge-base asset paths.
	AssetBaseURL string
	// KBRoot is where kb:// links are resolved. Empty disables resolution.
	KBRoot string

	Texts Texts
}

// DefaultPolicy returns a policy with the built-in stop keywords and texts.
func DefaultPolicy() Policy {
	return Policy{
		FAQ:           map[string]string{},
		StopKeywords:  []string{"停止", "stop", "取消", "cancel"},
		MaxStopLength: 10,
		DefaultSkill:  "customer-service",
		Language:      "中文",
		ImagesPerCard: 3,
		Texts:         DefaultTexts(),
	}
}

// MatchFAQ returns the canned answer for cleaned text.
func (p *Policy) MatchFAQ(cleaned string) (string, bool) {
	for q, a := range p.FAQ {
		if strings.EqualFold(strings.TrimSpace(q), cleaned) {
			return a, true
		}
	}
	return "", false
}

// IsStopCommand reports whether cleaned text is a short message holding a
// stop keyword.
func (p *Policy) IsStopCommand(cleaned string) bool {
	if cleaned == "" || utf8.RuneCountInString(cleaned) > p.MaxStopLength {
		return false
	}
	lower := strings.ToLower(cleaned)
	for _, kw := range p.StopKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func withRobot(s, robot string) string {
	return strings.ReplaceAll(s, "{robot}", robot)
}
