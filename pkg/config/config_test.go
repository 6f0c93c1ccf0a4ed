package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/riftload/riftload/pkg/models"
)

const sampleConfig = `
log_level: info
parallel: 2
runner:
  target_rps: 100
  duration: 10s
  batch_size: Auto
  base_url: https://api.example.com
  global:
    variables:
      - name: apiVersion
        value: v1
  scenarios:
    - name: createUser
      request:
        method: POST
        path: /users
        timeout: 2s
        body: '{"name":"${username}"}'
      response:
        assert:
          status: 201
        define:
          - name: userId
            from: body
            path: id
`

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadConfigParsesNestedShape(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 100, cfg.Runner.TargetRPS)
	require.True(t, cfg.Runner.BatchSize.Auto)
	require.Len(t, cfg.Runner.Scenarios, 1)
	require.Equal(t, "POST", cfg.Runner.Scenarios[0].Request.Method)
}

func TestBuildConvertsScenariosAndGlobals(t *testing.T) {
	path := writeTempConfig(t, sampleConfig)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	built, err := Build(cfg)
	require.NoError(t, err)
	require.Equal(t, "https://api.example.com", built.BaseURL)
	require.Len(t, built.Scenarios, 1)
	require.Len(t, built.GlobalVars, 1)
	require.Equal(t, "apiVersion", built.GlobalVars[0].Name)
	require.Equal(t, "v1", built.GlobalVars[0].Value.AsString())

	sc := built.Scenarios[0]
	require.Equal(t, "POST", sc.Method)
	require.Len(t, sc.Extractors, 1)
	require.Equal(t, 201, sc.Response.Status)
}

func TestBuildRejectsZeroDuration(t *testing.T) {
	_, err := Build(&models.Config{Runner: models.RunnerConfig{
		Duration:  "0s",
		BaseURL:   "https://x",
		Scenarios: []models.ScenarioConfig{{}},
	}})
	require.Error(t, err)
}

func TestBuildRejectsEmptyScenarios(t *testing.T) {
	_, err := Build(&models.Config{Runner: models.RunnerConfig{
		Duration: "10s",
		BaseURL:  "https://x",
	}})
	require.Error(t, err)
}

func TestBuildFixedBatchSizeIsCarried(t *testing.T) {
	cfg := &models.Config{Runner: models.RunnerConfig{
		Duration:  "10s",
		BaseURL:   "https://x",
		BatchSize: models.BatchSize{Fixed: 7},
		Scenarios: []models.ScenarioConfig{{
			Request:  models.RequestConfig{Method: "GET", Path: "/", Timeout: "1s"},
			Response: models.ResponseConfig{Assert: models.AssertConfig{Status: 200}},
		}},
	}}
	built, err := Build(cfg)
	require.NoError(t, err)
	require.Equal(t, 7, built.BatchSize)
}
