package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManagedDisplayName(t *testing.T) {
	assert.True(t, ManagedDisplayName("Gemini API Key"))
	assert.True(t, ManagedDisplayName("Generative Language API Key"))
	assert.False(t, ManagedDisplayName("gemini api key"), "matching is exact, not case-folded")
	assert.False(t, ManagedDisplayName("My Key"))
	assert.False(t, ManagedDisplayName(""))
}
