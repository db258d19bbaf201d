package stream

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(s *Scanner, chunks ...string) []Event {
	var events []Event
	for _, chunk := range chunks {
		events = append(events, s.Feed(chunk)...)
	}
	return append(events, s.Finish()...)
}

func TestScannerSplitsThinkingAndAnswer(t *testing.T) {
	events := collect(NewScanner(),
		"THINKING:\nFirst I check the budget section.",
		"\nANSWER:\nThe budget is $500.",
	)

	require.Len(t, events, 4)
	assert.Equal(t, Event{Type: EventThinking, Text: "THINKING:\nFirst I check the budget section."}, events[0])
	assert.Equal(t, Event{Type: EventThinkingComplete, Text: "First I check the budget section."}, events[1])
	assert.Equal(t, Event{Type: EventAnswer, Text: "\nThe budget is $500."}, events[2])
	assert.Equal(t, Event{Type: EventDone}, events[3])
}

// 标记被切在两个块之间也要能识别
func TestScannerDetectsMarkerAcrossChunks(t *testing.T) {
	events := collect(NewScanner(),
		"THINK",
		"ING:\nLet me reason.",
		"\nANS",
		"WER:\nDone.",
	)

	var completes, answers []Event
	for _, ev := range events {
		switch ev.Type {
		case EventThinkingComplete:
			completes = append(completes, ev)
		case EventAnswer:
			answers = append(answers, ev)
		}
	}
	require.Len(t, completes, 1)
	assert.Equal(t, "Let me reason.", completes[0].Text)
	require.Len(t, answers, 1)
	assert.Equal(t, "\nDone.", answers[0].Text)
	assert.Equal(t, EventDone, events[len(events)-1].Type)
}

func TestScannerStreamsAnswerChunksDirectly(t *testing.T) {
	s := NewScanner()
	s.Feed("THINKING: short\nANSWER: part one")

	assert.Equal(t, []Event{{Type: EventAnswer, Text: " part two"}}, s.Feed(" part two"))
	assert.Equal(t, []Event{{Type: EventDone}}, s.Finish())
}

// 模型没输出标记时，整段文本按答案兜底
func TestScannerFallsBackToAnswerWithoutMarker(t *testing.T) {
	events := collect(NewScanner(), "The project ", "ends in June.")

	require.Len(t, events, 4)
	assert.Equal(t, EventThinking, events[0].Type)
	assert.Equal(t, EventThinking, events[1].Type)
	assert.Equal(t, Event{Type: EventAnswer, Text: "The project ends in June."}, events[2])
	assert.Equal(t, Event{Type: EventDone}, events[3])
}

func TestScannerIgnoresEmptyChunks(t *testing.T) {
	s := NewScanner()
	assert.Nil(t, s.Feed(""))
	assert.Equal(t, []Event{{Type: EventDone}}, s.Finish())
}

func TestErrorEvent(t *testing.T) {
	ev := ErrorEvent(errors.New("upstream closed"))
	assert.Equal(t, EventError, ev.Type)
	assert.Equal(t, "upstream closed", ev.Message)
}
