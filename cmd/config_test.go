package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultRunConfig_Valid(t *testing.T) {
	cfg := DefaultRunConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "pp2zg2ll", cfg.Process.Name)
	assert.Equal(t, 14000.0, cfg.Process.ECM)
	assert.Equal(t, 60.0, cfg.Process.MinCutoffEnergy)
	assert.Equal(t, int64(1_000_000), cfg.Integration.Evaluations)
	assert.Equal(t, 1.2, cfg.Generation.EnvelopeFactor)
	assert.Equal(t, 1000.0, cfg.Shower.InitialScale)
	assert.Equal(t, 1.0, cfg.Shower.Cutoff)
	assert.True(t, cfg.Shower.FixedScale)
}

func TestLoadRunConfig_PartialFileKeepsDefaults(t *testing.T) {
	// GIVEN a file that only sets the seed and the process
	path := writeConfig(t, `
seed: 7
process:
  name: ee2mumu
  ecm: 91.188
shower:
  order: 1
`)

	// WHEN loaded
	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	// THEN the set keys override and everything else keeps its default
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, "ee2mumu", cfg.Process.Name)
	assert.Equal(t, 91.188, cfg.Process.ECM)
	assert.Equal(t, 1, cfg.Shower.Order)
	assert.Equal(t, 1000.0, cfg.Shower.InitialScale)
	assert.Equal(t, 1, cfg.Integration.Workers)
	require.NoError(t, cfg.Validate())
}

func TestLoadRunConfig_UnknownKey_Rejected(t *testing.T) {
	// GIVEN a typo in a nested key
	path := writeConfig(t, `
shower:
  cutof: 2
`)

	// WHEN loaded
	_, err := LoadRunConfig(path)

	// THEN strict parsing rejects it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cutof")
}

func TestLoadRunConfig_MissingFile(t *testing.T) {
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestRunConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
		want   string
	}{
		{"unknown process", func(c *RunConfig) { c.Process.Name = "pp2jets" }, "process:"},
		{"zero ecm", func(c *RunConfig) { c.Process.ECM = 0 }, "process:"},
		{"zero evaluations", func(c *RunConfig) { c.Integration.Evaluations = 0 }, "integration:"},
		{"zero workers", func(c *RunConfig) { c.Integration.Workers = 0 }, "integration:"},
		{"negative events", func(c *RunConfig) { c.Generation.Events = -1 }, "generation:"},
		{"small envelope factor", func(c *RunConfig) { c.Generation.EnvelopeFactor = 0.5 }, "generation:"},
		{"bad order", func(c *RunConfig) { c.Shower.Order = 2 }, "shower:"},
		{"negative evolutions", func(c *RunConfig) { c.Shower.Evolutions = -1 }, "shower:"},
		{"zero cutoff", func(c *RunConfig) { c.Shower.Cutoff = 0 }, "shower:"},
		{"bracket above safety", func(c *RunConfig) { c.Shower.BracketFactor = 5 }, "shower:"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRunConfig_CouplingConfig_FixedScaleIsHalfInitialScale(t *testing.T) {
	cfg := DefaultRunConfig()
	cc := cfg.couplingConfig()
	assert.True(t, cc.FixedScale)
	assert.Equal(t, 500.0, cc.Scale)
	assert.Equal(t, 1.0, cc.Cutoff)
}
