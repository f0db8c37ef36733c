package config

import (
	"os"
	"path/filepath"
	"testing"

	internal "github.com/ZanzyTHEbar/pkgowners/pkgowners"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite tests the config package functionality
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) SetupTest() {
	var err error
	suite.origDir, err = os.Getwd()
	require.NoError(suite.T(), err)

	suite.tempDir = suite.T().TempDir()

	// Change to temp directory so a stray ./config.yaml is never picked up
	err = os.Chdir(suite.tempDir)
	require.NoError(suite.T(), err)
}

func (suite *ConfigTestSuite) TearDownTest() {
	if suite.origDir != "" {
		os.Chdir(suite.origDir)
	}
}

func (suite *ConfigTestSuite) TestLoadConfigWithDefaults() {
	cfg, err := LoadConfig("")

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), internal.DefaultDatabaseDSN, cfg.Database.Path)
	assert.True(suite.T(), cfg.Database.Snapshot)
	assert.Equal(suite.T(), StrategyBasename, cfg.Index.Strategy)
	assert.True(suite.T(), cfg.Index.Reconcile)
	assert.Equal(suite.T(), internal.DefaultSysroot, cfg.Index.Sysroot)
	assert.Equal(suite.T(), 8, cfg.Index.Workers)
	assert.Equal(suite.T(), "info", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigWithFile() {
	configContent := `
database:
  path: "/srv/rpm/packages.db"
  snapshot: false
index:
  strategy: "hashed"
  reconcile: false
  sysroot: "/sysroot"
  workers: 2
log:
  level: "debug"
`

	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte(configContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), cfg)

	assert.Equal(suite.T(), "/srv/rpm/packages.db", cfg.Database.Path)
	assert.False(suite.T(), cfg.Database.Snapshot)
	assert.Equal(suite.T(), StrategyHashed, cfg.Index.Strategy)
	assert.False(suite.T(), cfg.Index.Reconcile)
	assert.Equal(suite.T(), "/sysroot", cfg.Index.Sysroot)
	assert.Equal(suite.T(), 2, cfg.Index.Workers)
	assert.Equal(suite.T(), "debug", cfg.Log.Level)
}

func (suite *ConfigTestSuite) TestLoadConfigFromEnvironment() {
	suite.T().Setenv("PKGOWNERS_INDEX_STRATEGY", "hashed")
	suite.T().Setenv("PKGOWNERS_DATABASE_PATH", "/tmp/env.db")

	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), StrategyHashed, cfg.Index.Strategy)
	assert.Equal(suite.T(), "/tmp/env.db", cfg.Database.Path)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidStrategy() {
	configFile := filepath.Join(suite.tempDir, "config.yaml")
	err := os.WriteFile(configFile, []byte("index:\n  strategy: trie\n"), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)
	assert.ErrorIs(suite.T(), err, ErrInvalidStrategy)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigInvalidFile() {
	// An explicit path that does not exist is an error, unlike the search path case
	cfg, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestLoadConfigMalformedFile() {
	malformedContent := `
index:
  strategy: "basename"
  invalid_yaml: [unclosed bracket
`

	configFile := filepath.Join(suite.tempDir, "malformed.yaml")
	err := os.WriteFile(configFile, []byte(malformedContent), 0o644)
	require.NoError(suite.T(), err)

	cfg, err := LoadConfig(configFile)

	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), cfg)
}

func (suite *ConfigTestSuite) TestAppConfigGlobal() {
	cfg, err := LoadConfig("")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), cfg.Index.Strategy, AppConfig.Index.Strategy)
	assert.Equal(suite.T(), cfg.Database.Path, AppConfig.Database.Path)
}

func TestValidateClampsWorkers(t *testing.T) {
	cfg := Config{
		Database: DatabaseConfig{Path: "x.db"},
		Index:    IndexConfig{Strategy: StrategyBasename, Workers: 0},
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Index.Workers)
}

func TestValidateEmptyDatabasePath(t *testing.T) {
	cfg := Config{Index: IndexConfig{Strategy: StrategyHashed, Workers: 1}}
	assert.Error(t, cfg.Validate())
}

// BenchmarkLoadConfig benchmarks config loading performance
func BenchmarkLoadConfig(b *testing.B) {
	for i := 0; i < b.N; i++ {
		cfg, err := LoadConfig("")
		if err != nil {
			b.Fatal(err)
		}
		_ = cfg
	}
}
