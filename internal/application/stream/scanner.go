// Package stream 实现模型流式输出的分段扫描
// 模型被要求按 "THINKING:" 与 "ANSWER:" 两段输出，扫描器逐块解析并产出事件
package stream

import "strings"

const (
	thinkingMarker = "THINKING:"
	answerMarker   = "ANSWER:"
)

// EventType 流式事件类型
type EventType string

const (
	// EventThinking 思考段增量文本
	EventThinking EventType = "thinking"
	// EventThinkingComplete 思考段结束，携带完整思考文本
	EventThinkingComplete EventType = "thinking_complete"
	// EventAnswer 答案段增量文本
	EventAnswer EventType = "answer"
	// EventDone 流结束
	EventDone EventType = "done"
	// EventError 流中途出错
	EventError EventType = "error"
)

// Event 推送给客户端的流式事件
type Event struct {
	Type    EventType `json:"type"`
	Text    string    `json:"text,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ErrorEvent 构造错误事件
func ErrorEvent(err error) Event {
	return Event{Type: EventError, Message: err.Error()}
}

type scanState int

const (
	// 尚未见到任何分段标记
	stateBeforeMarker scanState = iota
	// 已见到 THINKING:，在思考段内
	stateInThinking
	// 已见到 ANSWER:，在答案段内
	stateInAnswer
)

// Scanner 单遍状态机扫描器
// 分段标记可能被切在两个块之间，所以标记检测在累计缓冲上做；
// 进入答案段之后不再缓冲，块直接透传
type Scanner struct {
	state scanState
	buf   strings.Builder
}

// NewScanner 创建扫描器，每个流单独一个实例
func NewScanner() *Scanner {
	return &Scanner{}
}

// Feed 送入一个模型输出块，返回本块产生的事件
// 思考段按块即时下发，标记出现时再补发一条完整思考文本
func (s *Scanner) Feed(chunk string) []Event {
	if chunk == "" {
		return nil
	}
	if s.state == stateInAnswer {
		return []Event{{Type: EventAnswer, Text: chunk}}
	}

	s.buf.WriteString(chunk)
	buffered := s.buf.String()

	if idx := strings.Index(buffered, answerMarker); idx >= 0 {
		thinking := strings.TrimSpace(strings.Replace(buffered[:idx], thinkingMarker, "", 1))
		rest := buffered[idx+len(answerMarker):]
		s.state = stateInAnswer
		s.buf.Reset()

		events := []Event{{Type: EventThinkingComplete, Text: thinking}}
		if rest != "" {
			events = append(events, Event{Type: EventAnswer, Text: rest})
		}
		return events
	}

	if s.state == stateBeforeMarker && strings.Contains(buffered, thinkingMarker) {
		s.state = stateInThinking
	}
	return []Event{{Type: EventThinking, Text: chunk}}
}

// Finish 流结束时调用
// 模型没按要求输出 ANSWER: 标记时，把积累的全部文本按答案处理
func (s *Scanner) Finish() []Event {
	var events []Event
	if s.state != stateInAnswer {
		if buffered := s.buf.String(); buffered != "" {
			events = append(events, Event{Type: EventAnswer, Text: buffered})
		}
	}
	return append(events, Event{Type: EventDone})
}
