package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

func TestLoadCurveProfilesDefaults(t *testing.T) {
	p, err := LoadCurveProfiles("")
	require.NoError(t, err)
	assert.Equal(t, ProfileRefined, p.DefaultProfile)
	assert.Equal(t, []string{ProfileRefined, ProfileSimple}, p.Names())

	c, err := p.Get("")
	require.NoError(t, err)
	assert.Equal(t, royalty.RefinedCurve(), c)
	c, err = p.Get("Simple")
	require.NoError(t, err)
	assert.Equal(t, royalty.SimpleCurve(), c)
}

func TestLoadCurveProfilesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curves.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_profile: conservative
profiles:
  conservative:
    small_step: 0.02
    medium_step: 0.04
    decline_step: 0.01
    bump: 0.10
    cap: 0.5
    stabilization_factor: 0.9
`), 0o600))

	p, err := LoadCurveProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, "conservative", p.DefaultProfile)
	c, err := p.Get("")
	require.NoError(t, err)
	assert.Equal(t, 0.5, c.Cap)
	assert.Equal(t, 0.9, c.StabilizationFactor)

	_, err = p.Get(ProfileRefined)
	require.NoError(t, err, "built-in presets stay available")
}

func TestLoadCurveProfilesEnvOverride(t *testing.T) {
	t.Setenv("ROYALTY_CURVE_DEFAULT_PROFILE", "simple")
	t.Setenv("ROYALTY_CURVE_PROFILES_REFINED_CAP", "0.9")

	p, err := LoadCurveProfiles("")
	require.NoError(t, err)
	assert.Equal(t, ProfileSimple, p.DefaultProfile)
	refined, err := p.Get(ProfileRefined)
	require.NoError(t, err)
	assert.Equal(t, 0.9, refined.Cap)
}

func TestLoadCurveProfilesRejectsInvalid(t *testing.T) {
	t.Setenv("ROYALTY_CURVE_DEFAULT_PROFILE", "missing")
	_, err := LoadCurveProfiles("")
	require.Error(t, err)

	t.Setenv("ROYALTY_CURVE_DEFAULT_PROFILE", "refined")
	t.Setenv("ROYALTY_CURVE_PROFILES_SIMPLE_CAP", "1.5")
	_, err = LoadCurveProfiles("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile simple")
}

func TestLoadCurveProfilesMissingFile(t *testing.T) {
	_, err := LoadCurveProfiles(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestGetUnknownProfile(t *testing.T) {
	_, err := DefaultCurveProfiles().Get("wild")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refined, simple")
}

func TestLoadServerConfigDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := LoadServerConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8090", cfg.Addr)
	assert.Equal(t, "default", cfg.Sector)
	assert.Equal(t, 60*time.Second, cfg.ReportTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadAgentConfigFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ROYALTY_AGENT_ID=royalty-test\nROYALTY_LOG_FORMAT=console\n"), 0o600))
	t.Setenv("BUS_URL", "http://bus:9000")
	t.Cleanup(func() {
		os.Unsetenv("ROYALTY_AGENT_ID")
		os.Unsetenv("ROYALTY_LOG_FORMAT")
	})

	cfg, err := LoadAgentConfig()
	require.NoError(t, err)
	assert.Equal(t, "royalty-test", cfg.AgentID)
	assert.Equal(t, "http://bus:9000", cfg.BusURL)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.PollWaitSec)
}

func TestLoadAgentConfigRejectsBadPollWait(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ROYALTY_POLL_WAIT_SEC", "0")
	_, err := LoadAgentConfig()
	require.Error(t, err)
}
