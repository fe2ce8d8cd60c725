package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig(ProviderGemini)

	assert.Equal(t, ProviderGemini, config.Provider)
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TaskText))
	assert.Equal(t, "gemini-2.5-flash", config.GetModel(TaskVision))
	assert.InDelta(t, 0.1, config.Temperature, 0.0001)
	assert.True(t, config.Breaker.Enabled)
}

func TestDefaultConfig_UnknownProviderFallsBackToGemini(t *testing.T) {
	config := DefaultConfig("mystery")
	assert.Equal(t, ProviderGemini, config.Provider)
}

func TestDefaultConfig_OpenAI(t *testing.T) {
	config := DefaultConfig(ProviderOpenAI)
	assert.Equal(t, "gpt-4o", config.GetModel(TaskText))
	assert.Equal(t, "whisper-1", config.GetModel(TaskTranscription))
}

func TestGetModel_Fallback(t *testing.T) {
	config := &Config{
		Provider: ProviderAnthropic,
		Models: map[Task]string{
			TaskText: "fallback-model",
		},
	}

	assert.Equal(t, "fallback-model", config.GetModel(TaskVision))
}

func TestGetModel_EmptyConfig(t *testing.T) {
	config := &Config{Provider: ProviderGemini, Models: map[Task]string{}}
	assert.Equal(t, "", config.GetModel(TaskVision))
}

func TestWithModel(t *testing.T) {
	original := DefaultConfig(ProviderGemini)
	modified := original.WithModel(TaskVision, "gemini-2.5-pro")

	assert.Equal(t, "gemini-2.5-flash", original.GetModel(TaskVision))
	assert.Equal(t, "gemini-2.5-pro", modified.GetModel(TaskVision))
	assert.Equal(t, original.Provider, modified.Provider)
}

func TestCapabilities(t *testing.T) {
	assert.True(t, CapabilitiesOf(ProviderOpenAI).Transcription)
	assert.False(t, CapabilitiesOf(ProviderGemini).Transcription)
	assert.False(t, CapabilitiesOf(ProviderAnthropic).Transcription)
	assert.False(t, CapabilitiesOf("unknown").Transcription)

	assert.True(t, ProviderAnthropic.Valid())
	assert.False(t, Provider("unknown").Valid())
	assert.True(t, DefaultConfig(ProviderOpenAI).Capabilities().Transcription)
}
