package channel

import (
	"encoding/json"

	"github.com/zeuzmakessoftware/babelfish/internal/domain"
)

// Message is the closed set of inbound channel messages. Exactly one
// concrete type per wire discriminator, plus Unknown for everything else.
type Message interface {
	isChannelMessage()
}

// Status reports backend progress for the in-flight request.
type Status struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// TranslationComplete carries a full translation result.
type TranslationComplete struct {
	Result domain.TranslationResult `json:"data"`
}

// ErrorMessage carries a human-readable failure reason.
type ErrorMessage struct {
	Message string `json:"message"`
}

// Unknown wraps an unrecognized message type. It is logged and ignored.
type Unknown struct {
	Type string
	Raw  []byte
}

func (Status) isChannelMessage()              {}
func (TranslationComplete) isChannelMessage() {}
func (ErrorMessage) isChannelMessage()        {}
func (Unknown) isChannelMessage()             {}

// TranslateEnvelope is the outbound request wrapper.
type TranslateEnvelope struct {
	Type string                    `json:"type"`
	Data domain.TranslationRequest `json:"data"`
}

// NewTranslateEnvelope wraps a request for the wire.
func NewTranslateEnvelope(req domain.TranslationRequest) TranslateEnvelope {
	return TranslateEnvelope{Type: "translate", Data: req}
}

// decodeMessage maps a raw frame onto the message union.
func decodeMessage(raw []byte) (Message, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case "status":
		var m Status
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "translation_complete":
		var m TranslationComplete
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	case "error":
		var m ErrorMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return Unknown{Type: head.Type, Raw: raw}, nil
	}
}
