package entities

// UnknownSpeakerName is the sentinel display name for utterances whose
// speaker id resolves to neither a user nor an agent.
const UnknownSpeakerName = "Unknown"

// TranscriptItem is one utterance parsed from the provider's JSONL transcript
// artifact. Items are ephemeral: they are enriched in memory and folded into
// the summary prompt, never persisted verbatim.
type TranscriptItem struct {
	SpeakerID string  `json:"speaker_id"`
	Type      string  `json:"type,omitempty"`
	Text      string  `json:"text"`
	StartTs   float64 `json:"start_ts"`
	StopTs    float64 `json:"stop_ts"`
}

// Speaker is the resolved identity behind a speaker id. The identity domain
// is the union of users and agents, not either table alone.
type Speaker struct {
	Name string `json:"name"`
}

// EnrichedTranscriptItem is a transcript item with its speaker resolved
type EnrichedTranscriptItem struct {
	TranscriptItem
	User Speaker `json:"user"`
}
