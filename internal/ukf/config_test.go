package ukf

import (
	"testing"

	"github.com/banshee-data/sensorfusion/internal/config"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestConfigFromTuning_Defaults(t *testing.T) {
	t.Parallel()
	got := ConfigFromTuning(config.EmptyTuningConfig())
	if diff := cmp.Diff(DefaultConfig(), got); diff != "" {
		t.Errorf("ConfigFromTuning(empty) mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFromTuning_DefaultsFile(t *testing.T) {
	t.Parallel()
	got := ConfigFromTuning(config.MustLoadDefaultConfig())
	assert.NoError(t, got.Validate())
	assert.Equal(t, DefaultConfig(), got)
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	cfg.UseLaser = false
	assert.False(t, cfg.enabled(SensorLidar))
	assert.True(t, cfg.enabled(SensorRadar))
	assert.False(t, cfg.enabled(SensorType(5)))
}
