package bridge

import "encoding/json"

// Control-channel message kinds spoken with the translation capability.
const (
	msgSessionUpdate = "session.update"

	msgSpeechStarted    = "input_audio_buffer.speech_started"
	msgSpeechStopped    = "input_audio_buffer.speech_stopped"
	msgSourceTranscript = "conversation.item.input_audio_transcription.completed"
	msgTranslationDelta = "response.audio_transcript.delta"
	msgTranslationDone  = "response.audio_transcript.done"
	msgError            = "error"
)

// sessionUpdate is the outbound configuration directive. The same message
// kind carries both the initial configuration and live reconfiguration;
// reconfiguring is never a reconnect.
type sessionUpdate struct {
	Type    string         `json:"type"`
	Session sessionPayload `json:"session"`
}

type sessionPayload struct {
	Instructions            string               `json:"instructions,omitempty"`
	Voice                   string               `json:"voice,omitempty"`
	InputAudioFormat        string               `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string               `json:"output_audio_format,omitempty"`
	InputAudioTranscription *transcriptionConfig `json:"input_audio_transcription,omitempty"`
	TurnDetection           *turnDetectionConfig `json:"turn_detection,omitempty"`
	Temperature             *float64             `json:"temperature,omitempty"`
	MaxResponseOutputTokens *int                 `json:"max_response_output_tokens,omitempty"`
}

type transcriptionConfig struct {
	Model string `json:"model"`
}

type turnDetectionConfig struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMS   int     `json:"prefix_padding_ms"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
}

// initialUpdate builds the full first session.update for a freshly opened
// control channel.
func initialUpdate(cfg *Config) sessionUpdate {
	temp := 0.0
	maxTok := 50
	return sessionUpdate{
		Type: msgSessionUpdate,
		Session: sessionPayload{
			Instructions:            cfg.instructions(),
			Voice:                   cfg.Voice,
			InputAudioFormat:        "pcm16",
			OutputAudioFormat:       "pcm16",
			InputAudioTranscription: &transcriptionConfig{Model: "whisper-1"},
			TurnDetection: &turnDetectionConfig{
				Type:              "server_vad",
				Threshold:         cfg.TurnDetection.Threshold,
				PrefixPaddingMS:   cfg.TurnDetection.PrefixPaddingMS,
				SilenceDurationMS: cfg.TurnDetection.SilenceDurationMS,
			},
			Temperature:             &temp,
			MaxResponseOutputTokens: &maxTok,
		},
	}
}

// serverEvent is the inbound envelope; only the fields relevant to the kinds
// we dispatch are decoded.
type serverEvent struct {
	Type       string       `json:"type"`
	Delta      string       `json:"delta,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Error      *serverError `json:"error,omitempty"`
}

type serverError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

func parseServerEvent(data []byte) (*serverEvent, error) {
	var ev serverEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
