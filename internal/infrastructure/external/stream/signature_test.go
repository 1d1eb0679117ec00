package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/derricker/meetai/pkg/config"
)

func TestVerifyWebhook(t *testing.T) {
	c := NewClient(&config.StreamConfig{APIKey: "key", APISecret: "secret"})
	payload := []byte(`{"type":"call.session_started"}`)
	signature := SignPayload("secret", payload)

	assert.True(t, c.VerifyWebhook(payload, signature))
}

func TestVerifyWebhook_TamperedPayload(t *testing.T) {
	c := NewClient(&config.StreamConfig{APIKey: "key", APISecret: "secret"})
	signature := SignPayload("secret", []byte(`{"type":"call.session_started"}`))

	assert.False(t, c.VerifyWebhook([]byte(`{"type":"call.session_ended"}`), signature))
}

func TestVerifyWebhook_WrongSecret(t *testing.T) {
	c := NewClient(&config.StreamConfig{APIKey: "key", APISecret: "secret"})
	payload := []byte(`{"type":"call.session_started"}`)
	signature := SignPayload("other-secret", payload)

	assert.False(t, c.VerifyWebhook(payload, signature))
}

func TestVerifyWebhook_EmptyInputsFail(t *testing.T) {
	c := NewClient(&config.StreamConfig{APIKey: "key", APISecret: "secret"})
	payload := []byte(`{}`)

	assert.False(t, c.VerifyWebhook(payload, ""))

	unsigned := NewClient(&config.StreamConfig{APIKey: "key", APISecret: ""})
	assert.False(t, unsigned.VerifyWebhook(payload, SignPayload("", payload)))
}
