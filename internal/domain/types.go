// Package domain holds the data model shared by the voice pipeline
// components and the backend wire contract.
package domain

// TranslationRequest is the payload sent to the translation backend,
// over the live channel or as a direct request. It is immutable once
// constructed.
type TranslationRequest struct {
	InputText       string `json:"input_text"`
	SessionID       string `json:"session_id"`
	BusinessContext string `json:"business_context,omitempty"`
	UserAgent       string `json:"user_agent,omitempty"`
}

// TranslationResult is a resolved translation. Exactly one resolution
// tier produces it per request.
type TranslationResult struct {
	SessionID        string   `json:"session_id,omitempty"`
	Term             string   `json:"term"`
	Explanation      string   `json:"explanation"`
	Category         string   `json:"category"`
	Confidence       float64  `json:"confidence"`
	BusinessImpact   string   `json:"business_impact"`
	RelatedTerms     []string `json:"related_terms"`
	Sources          []string `json:"sources,omitempty"`
	ProcessingTimeMs float64  `json:"processing_time"`
}

// SynthesisRequest asks the voice backend for an audio rendering of text.
type SynthesisRequest struct {
	Text       string  `json:"text"`
	VoiceStyle string  `json:"voice_style,omitempty"`
	Speed      float64 `json:"speed,omitempty"`
}
