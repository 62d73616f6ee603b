package stream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResponses_OnlyDeltaEvents(t *testing.T) {
	body := strings.Join([]string{
		`data: {"type":"response.created","response":{"id":"resp_1"}}`,
		`data: {"type":"response.output_text.delta","delta":"Sum"}`,
		`data: {"type":"response.output_text.delta","delta":"mary"}`,
		`data: {"type":"response.output_text.done","text":"Summary"}`,
		`data: {"type":"response.completed","response":{"output_text":"Summary"}}`,
		`data: [DONE]`,
		``,
	}, "\n")

	text, increments := collect(t, Responses, body, 5)
	assert.Equal(t, "Summary", text)
	assert.Equal(t, []string{"Sum", "mary"}, increments)
}

func TestArk_IgnoresDoneAndCompletedEchoes(t *testing.T) {
	body := strings.Join([]string{
		`data: {"type":"response.output_text.delta","delta":"你好"}`,
		`data: {"type":"response.output_text.delta","delta":"，世界"}`,
		`data: {"type":"response.content_part.done","part":{"type":"output_text","text":"你好，世界"}}`,
		`data: {"type":"response.output_item.done","item":{"content":[{"text":"你好，世界"}]}}`,
		`data: {"type":"response.output_text.done","delta":"你好，世界"}`,
		`data: {"type":"response.completed","delta":"你好，世界"}`,
		`data: [DONE]`,
		``,
	}, "\n")

	for _, size := range []int{1, 4, 11, len(body)} {
		text, increments := collect(t, Ark, body, size)
		assert.Equal(t, "你好，世界", text)
		assert.Equal(t, text, strings.Join(increments, ""))
	}
}

func TestGemini_PartsPreference(t *testing.T) {
	tests := []struct {
		name   string
		record string
		want   string
	}{
		{
			name:   "content parts",
			record: `{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}],"role":"model"}}]}`,
			want:   "ab",
		},
		{
			name:   "delta content parts win",
			record: `{"candidates":[{"delta":{"content":{"parts":[{"text":"d"}]}},"content":{"parts":[{"text":"c"}]}}]}`,
			want:   "d",
		},
		{
			name:   "delta parts",
			record: `{"candidates":[{"delta":{"parts":[{"text":"p"}]}}]}`,
			want:   "p",
		},
		{
			name:   "empty delta parts fall back to content parts",
			record: `{"candidates":[{"delta":{"content":{"parts":[]}},"content":{"parts":[{"text":"c"}]}}]}`,
			want:   "c",
		},
		{
			name:   "textless delta parts fall back to delta parts",
			record: `{"candidates":[{"delta":{"content":{"parts":[{"inlineData":{}}]},"parts":[{"text":"p"}]}}]}`,
			want:   "p",
		},
		{
			name:   "no candidates",
			record: `{"usageMetadata":{"promptTokenCount":3}}`,
			want:   "",
		},
		{
			name:   "parts without text",
			record: `{"candidates":[{"content":{"parts":[{"inlineData":{}}]}}]}`,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := SafeParse([]byte(tt.record))
			assert.True(t, ok)
			assert.Equal(t, tt.want, Gemini.Extract(rec))
		})
	}
}

func TestGemini_NoSentinel(t *testing.T) {
	body := "data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"one \"}]}}]}\r\n\r\n" +
		"data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"two\"}]},\"finishReason\":\"STOP\"}]}\r\n\r\n"

	p := NewParser(Gemini, nil)
	_, err := p.Write([]byte(body))
	assert.NoError(t, err)
	p.Close()
	assert.False(t, p.Done())
	assert.Equal(t, "one two", p.Text())
}

func TestAnthropic_ContentBlockDeltaOnly(t *testing.T) {
	body := strings.Join([]string{
		`event: message_start`,
		`data: {"type":"message_start","message":{"id":"msg_1","content":[]}}`,
		``,
		`event: content_block_start`,
		`data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi"}}`,
		``,
		`event: ping`,
		`data: {"type":"ping"}`,
		``,
		`event: content_block_delta`,
		`data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" there"}}`,
		``,
		`event: content_block_stop`,
		`data: {"type":"content_block_stop","index":0}`,
		``,
		`event: message_stop`,
		`data: {"type":"message_stop"}`,
		``,
	}, "\n")

	text, increments := collect(t, Anthropic, body, 3)
	assert.Equal(t, "Hi there", text)
	assert.Equal(t, []string{"Hi", " there"}, increments)
}

func TestAnthropic_ErrorEventFaults(t *testing.T) {
	rec, _ := SafeParse([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`))
	err := Anthropic.Fault(rec)
	assert.EqualError(t, err, "anthropic: stream error: overloaded_error: Overloaded")

	rec, _ = SafeParse([]byte(`{"type":"message_delta","delta":{"stop_reason":"end_turn"}}`))
	assert.NoError(t, Anthropic.Fault(rec))
}

func TestResponses_FailedEventFaults(t *testing.T) {
	rec, _ := SafeParse([]byte(`{"type":"response.failed","response":{"error":{"code":"server_error","message":"bad"}}}`))
	err := Responses.Fault(rec)
	assert.EqualError(t, err, "responses: stream error: server_error: bad")

	rec, _ = SafeParse([]byte(`{"type":"response.completed","response":{"error":null}}`))
	assert.NoError(t, Responses.Fault(rec))
}

func TestEnvelopeFault_NullError(t *testing.T) {
	rec, _ := SafeParse([]byte(`{"error":null,"choices":[{"delta":{"content":"x"}}]}`))
	assert.NoError(t, ChatCompletions.Fault(rec))
}
