package event

// Operation names used in call events.
const (
	OpSummarize          = "summarize"
	OpChat               = "chat"
	OpSummarizeMultiFile = "summarize-files"
	OpTestConnection     = "test"
)

// CallStartedData is the data for call.started events.
type CallStartedData struct {
	CallID    string `json:"callID"`
	Provider  string `json:"provider"`
	Operation string `json:"operation"`
	Model     string `json:"model,omitempty"`
	Stream    bool   `json:"stream"`
}

// CallDeltaData is the data for call.delta events.
type CallDeltaData struct {
	CallID string `json:"callID"`
	Delta  string `json:"delta"`
}

// CallCompletedData is the data for call.completed events.
type CallCompletedData struct {
	CallID     string `json:"callID"`
	Provider   string `json:"provider"`
	Operation  string `json:"operation"`
	Length     int    `json:"length"`
	DurationMS int64  `json:"durationMs"`
}

// CallFailedData is the data for call.failed events.
type CallFailedData struct {
	CallID     string `json:"callID"`
	Provider   string `json:"provider"`
	Operation  string `json:"operation"`
	Error      string `json:"error"`
	DurationMS int64  `json:"durationMs"`
}

// ConfigReloadedData is the data for config.reloaded events.
type ConfigReloadedData struct {
	File      string   `json:"file"`
	Providers []string `json:"providers"`
}
