package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derricker/meetai/internal/domain/entities"
)

func TestParseTranscript(t *testing.T) {
	raw := `{"speaker_id":"u1","type":"speech","text":"hello everyone","start_ts":0,"stop_ts":1200}
{"speaker_id":"a1","type":"speech","text":"hi, let's begin","start_ts":1300,"stop_ts":2400}`

	items, err := parseTranscript(raw)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, entities.TranscriptItem{
		SpeakerID: "u1",
		Type:      "speech",
		Text:      "hello everyone",
		StartTs:   0,
		StopTs:    1200,
	}, items[0])
	assert.Equal(t, "a1", items[1].SpeakerID)
}

func TestParseTranscript_SkipsBlankLines(t *testing.T) {
	raw := "\n{\"speaker_id\":\"u1\",\"text\":\"one\"}\n\n   \n{\"speaker_id\":\"u2\",\"text\":\"two\"}\n\n"

	items, err := parseTranscript(raw)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "one", items[0].Text)
	assert.Equal(t, "two", items[1].Text)
}

func TestParseTranscript_MalformedLineFails(t *testing.T) {
	raw := "{\"speaker_id\":\"u1\",\"text\":\"ok\"}\nnot json\n{\"speaker_id\":\"u2\",\"text\":\"also ok\"}"

	items, err := parseTranscript(raw)
	assert.Nil(t, items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseTranscript_Empty(t *testing.T) {
	items, err := parseTranscript("")
	require.NoError(t, err)
	assert.Empty(t, items)
}
