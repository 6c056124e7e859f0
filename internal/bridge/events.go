package bridge

// Event is the interface for all bridge session events.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// SpeechStartedEvent is emitted when the capability detects speech on the
// inbound audio.
type SpeechStartedEvent struct{}

func (e *SpeechStartedEvent) EventType() string { return "speech.started" }

// SpeechStoppedEvent is emitted when the detected speech ends.
type SpeechStoppedEvent struct{}

func (e *SpeechStoppedEvent) EventType() string { return "speech.stopped" }

// SourceTranscriptEvent carries what the speaker said, in their own language.
type SourceTranscriptEvent struct {
	Text string `json:"text"`
}

func (e *SourceTranscriptEvent) EventType() string { return "transcript.source" }

// TranslationDeltaEvent carries a partial translation as it is spoken.
type TranslationDeltaEvent struct {
	Delta string `json:"delta"`
}

func (e *TranslationDeltaEvent) EventType() string { return "translation.delta" }

// TranslationDoneEvent carries the finished translation of one utterance.
type TranslationDoneEvent struct {
	Text string `json:"text"`
}

func (e *TranslationDoneEvent) EventType() string { return "translation.done" }

// ErrorStage distinguishes setup failures from failures on a live bridge.
type ErrorStage string

const (
	StageEstablishment ErrorStage = "establishment"
	StageTransport     ErrorStage = "transport"
)

// ErrorEvent surfaces a bridge failure to the orchestrating flow. It never
// crashes the host process; calling code decides whether to end the call.
type ErrorEvent struct {
	Stage   ErrorStage `json:"stage"`
	Code    string     `json:"code,omitempty"`
	Message string     `json:"message"`
}

func (e *ErrorEvent) EventType() string { return "error" }
