package stream

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// DataPrefix marks a data record in every supported vendor stream.
const DataPrefix = "data:"

// DoneSentinel ends OpenAI-style streams.
const DoneSentinel = "[DONE]"

// Dialect specializes Parser for one vendor's framing.
type Dialect struct {
	// Name identifies the dialect in logs.
	Name string
	// Prefix marks data lines. Defaults to DataPrefix.
	Prefix string
	// Sentinel ends the stream explicitly. Empty when the vendor relies
	// on transport completion.
	Sentinel string
	// Extract returns the new text carried by one record, or "".
	Extract func(record gjson.Result) string
	// Fault returns a non-nil error when a record reports a vendor error
	// in-band. Optional.
	Fault func(record gjson.Result) error
}

func (d Dialect) prefix() string {
	if d.Prefix == "" {
		return DataPrefix
	}
	return d.Prefix
}

// RecordError is an error reported inside the stream body.
type RecordError struct {
	Dialect string
	Code    string
	Message string
}

func (e *RecordError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: stream error: %s: %s", e.Dialect, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: stream error: %s", e.Dialect, e.Message)
}

// ChatCompletions is the OpenAI Chat Completions dialect, also spoken by
// OpenAI-compatible relays.
var ChatCompletions = Dialect{
	Name:     "chat-completions",
	Sentinel: DoneSentinel,
	Extract: func(record gjson.Result) string {
		return record.Get("choices.0.delta.content").String()
	},
	Fault: envelopeFault("chat-completions"),
}

// Responses is the OpenAI Responses API dialect.
var Responses = Dialect{
	Name:     "responses",
	Sentinel: DoneSentinel,
	Extract: func(record gjson.Result) string {
		if record.Get("type").String() != "response.output_text.delta" {
			return ""
		}
		return record.Get("delta").String()
	},
	Fault: responsesFault("responses"),
}

// Gemini is the Google Gemini streamGenerateContent dialect. It has no
// sentinel; the stream ends when the transport completes.
var Gemini = Dialect{
	Name: "gemini",
	Extract: func(record gjson.Result) string {
		candidate := record.Get("candidates.0")
		if !candidate.Exists() {
			return ""
		}
		// The first location holding text wins; an empty or textless
		// parts array falls through to the next one.
		for _, path := range []string{"delta.content.parts", "delta.parts", "content.parts"} {
			if text := joinText(candidate.Get(path)); text != "" {
				return text
			}
		}
		return ""
	},
	Fault: envelopeFault("gemini"),
}

// Anthropic is the Anthropic Messages dialect. Only content_block_delta
// events carry text; message and block start/stop events are ignored.
var Anthropic = Dialect{
	Name: "anthropic",
	Extract: func(record gjson.Result) string {
		if record.Get("type").String() != "content_block_delta" {
			return ""
		}
		return record.Get("delta.text").String()
	},
	Fault: func(record gjson.Result) error {
		if record.Get("type").String() != "error" {
			return nil
		}
		return &RecordError{
			Dialect: "anthropic",
			Code:    record.Get("error.type").String(),
			Message: record.Get("error.message").String(),
		}
	},
}

// Ark is the Volcengine Ark responses dialect. Ark re-sends the complete
// text in *.done and *.completed events; only the delta events count.
var Ark = Dialect{
	Name:     "ark",
	Sentinel: DoneSentinel,
	Extract: func(record gjson.Result) string {
		eventType := record.Get("type").String()
		if strings.HasSuffix(eventType, ".done") || strings.HasSuffix(eventType, ".completed") {
			return ""
		}
		if eventType != "response.output_text.delta" {
			return ""
		}
		return record.Get("delta").String()
	},
	Fault: responsesFault("ark"),
}

// joinText concatenates the text fields of a Gemini parts array.
func joinText(parts gjson.Result) string {
	var b strings.Builder
	parts.ForEach(func(_, part gjson.Result) bool {
		b.WriteString(part.Get("text").String())
		return true
	})
	return b.String()
}

// envelopeFault detects the {"error":{...}} envelope some relays emit
// in the middle of a stream.
func envelopeFault(dialect string) func(gjson.Result) error {
	return func(record gjson.Result) error {
		errObj := record.Get("error")
		if !errObj.Exists() || errObj.Type == gjson.Null {
			return nil
		}
		if errObj.Type == gjson.String {
			return &RecordError{Dialect: dialect, Message: errObj.String()}
		}
		// A symbolic code beats Gemini's numeric one.
		code := ""
		for _, path := range []string{"code", "type", "status"} {
			if v := errObj.Get(path); v.Type == gjson.String && v.String() != "" {
				code = v.String()
				break
			}
		}
		if code == "" {
			code = errObj.Get("code").String()
		}
		return &RecordError{Dialect: dialect, Code: code, Message: errObj.Get("message").String()}
	}
}

// responsesFault handles the "error" and "response.failed" events of the
// Responses family.
func responsesFault(dialect string) func(gjson.Result) error {
	return func(record gjson.Result) error {
		switch record.Get("type").String() {
		case "error":
			return &RecordError{
				Dialect: dialect,
				Code:    firstString(record, "code", "error.code"),
				Message: firstString(record, "message", "error.message"),
			}
		case "response.failed":
			return &RecordError{
				Dialect: dialect,
				Code:    record.Get("response.error.code").String(),
				Message: record.Get("response.error.message").String(),
			}
		}
		return envelopeFault(dialect)(record)
	}
}

func firstString(record gjson.Result, paths ...string) string {
	for _, path := range paths {
		if s := record.Get(path).String(); s != "" {
			return s
		}
	}
	return ""
}
