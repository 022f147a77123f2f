package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wejdeneh/cntrl/internal/config"
)

func TestResolveDefaultsToBootstrap(t *testing.T) {
	assert.Equal(t, Bootstrap, Resolve(config.Config{}, nil, false))
}

func TestResolveEnvOverrideWins(t *testing.T) {
	cfg := config.Config{ModeOverride: "APPLY"}
	ann := map[string]string{config.ModeAnnotation: "BOOTSTRAP"}
	assert.Equal(t, Apply, Resolve(cfg, ann, false))
}

func TestResolveFallsBackToAnnotation(t *testing.T) {
	ann := map[string]string{config.ModeAnnotation: "APPLY"}
	assert.Equal(t, Apply, Resolve(config.Config{}, ann, false))
}

func TestResolveIgnoresInvalidAnnotation(t *testing.T) {
	ann := map[string]string{config.ModeAnnotation: "WAT"}
	assert.Equal(t, Bootstrap, Resolve(config.Config{}, ann, false))
}

func TestResolveTeardownOverridesEverything(t *testing.T) {
	cfg := config.Config{ModeOverride: "APPLY"}
	assert.Equal(t, Teardown, Resolve(cfg, nil, true))
}
