package providers

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/aiexpert/internal/config"
	"github.com/manthysbr/aiexpert/internal/core/domain"
)

type localConfig struct{ cfg domain.LocalProviderConfig }

func (l *localConfig) LocalConfig() domain.LocalProviderConfig { return l.cfg }

func TestBuildWithoutCredential(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	settings := &localConfig{}

	p, err := Build(context.Background(), logger, &config.Environment{}, settings)
	require.NoError(t, err)
	assert.False(t, p.Cloud.IsConfigured())
	assert.False(t, p.Local.IsConfigured())

	settings.cfg = domain.LocalProviderConfig{ServerBaseURL: "http://s", ModelName: "m", RelayBaseURL: "http://r"}
	assert.True(t, p.Local.IsConfigured())
}
