package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalProviderConfigCompleteness(t *testing.T) {
	full := LocalProviderConfig{
		ServerBaseURL: "http://127.0.0.1:11434",
		ModelName:     "llama3",
		RelayBaseURL:  "https://relay.example",
	}
	assert.True(t, full.IsComplete())
	assert.Empty(t, full.Missing())

	// Every non-empty subset of fields left blank.
	for mask := 1; mask < 8; mask++ {
		cfg := full
		var want []string
		if mask&1 != 0 {
			cfg.ServerBaseURL = ""
			want = append(want, "serverBaseUrl")
		}
		if mask&2 != 0 {
			cfg.ModelName = "  "
			want = append(want, "modelName")
		}
		if mask&4 != 0 {
			cfg.RelayBaseURL = ""
			want = append(want, "relayBaseUrl")
		}
		assert.False(t, cfg.IsComplete(), "mask %03b", mask)
		assert.Equal(t, want, cfg.Missing(), "mask %03b", mask)
	}
}

func TestParseProviderSelection(t *testing.T) {
	tests := []struct {
		raw    string
		want   ProviderSelection
		wantOK bool
	}{
		{"cloud", ProviderCloud, true},
		{" Local ", ProviderLocal, true},
		{"", DefaultProvider, false},
		{"ollama", DefaultProvider, false},
	}
	for _, tt := range tests {
		got, ok := ParseProviderSelection(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.wantOK, ok, tt.raw)
	}
	assert.False(t, ProviderSelection("gpu").Valid())
}

func TestTrimBaseURL(t *testing.T) {
	assert.Equal(t, "http://host:11434", TrimBaseURL(" http://host:11434// "))
	assert.Equal(t, "", TrimBaseURL("   "))
}
