package config

import (
	"context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var managedEnv = []string{
	"PRODUCTION", "AWS_REGION", "DYNAMODB_ENDPOINT", "DYNAMODB_LOCAL_ENDPOINT",
	"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "FIXTURES_DIR", "LOG_LEVEL",
	"THROTTLE_DELETE_INTERVAL", "THROTTLE_SETTLE_DELAY", "THROTTLE_CREATE_DELAY",
	"THROTTLE_ACTIVE_TIMEOUT", "CAPACITY_READ", "CAPACITY_WRITE",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range managedEnv {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.False(t, cfg.Production)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "fixtures", cfg.FixturesDir)
	assert.Equal(t, 800*time.Millisecond, cfg.Throttle.DeleteInterval)
	assert.Equal(t, time.Second, cfg.Throttle.SettleDelay)
	assert.Equal(t, 2*time.Second, cfg.Throttle.CreateDelay)
	assert.Equal(t, int64(5), cfg.Capacity.Read)
	assert.Equal(t, int64(5), cfg.Capacity.Write)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFilesUsesDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "config.yml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayersFileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(configFile, []byte(`
region: eu-west-1
fixtures_dir: seed/data
database:
  endpoint: http://dynamo.internal:8000
throttle:
  delete_interval: 10ms
capacity:
  read: 3
  write: 4
`), 0644))

	t.Setenv("CAPACITY_WRITE", "9")

	cfg, err := Load(configFile, "")
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "seed/data", cfg.FixturesDir)
	assert.Equal(t, "http://dynamo.internal:8000", cfg.Database.Endpoint)
	assert.Equal(t, 10*time.Millisecond, cfg.Throttle.DeleteInterval)
	assert.Equal(t, 2*time.Second, cfg.Throttle.CreateDelay)
	assert.Equal(t, int64(3), cfg.Capacity.Read)
	assert.Equal(t, int64(9), cfg.Capacity.Write)
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PRODUCTION=true\nAWS_ACCESS_KEY_ID=AKID\nAWS_SECRET_ACCESS_KEY=secret\nTHROTTLE_CREATE_DELAY=0s\n"), 0644))
	t.Cleanup(func() {
		for _, k := range []string{"PRODUCTION", "AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "THROTTLE_CREATE_DELAY"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.True(t, cfg.Production)
	assert.Equal(t, "AKID", cfg.Database.AccessKeyID)
	assert.Equal(t, "secret", cfg.Database.SecretAccessKey)
	assert.Equal(t, time.Duration(0), cfg.Throttle.CreateDelay)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	configFile := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configFile, []byte("region: [unterminated"), 0644))

	_, err := Load(configFile, "")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"empty region":     func(c *Config) { c.Region = "" },
		"empty fixtures":   func(c *Config) { c.FixturesDir = "" },
		"zero capacity":    func(c *Config) { c.Capacity.Read = 0 },
		"negative delay":   func(c *Config) { c.Throttle.SettleDelay = -time.Second },
		"half credentials": func(c *Config) { c.Database.AccessKeyID = "AKID" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEndpoint(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8000", cfg.Endpoint())

	cfg.Production = true
	assert.Equal(t, "", cfg.Endpoint())

	cfg.Database.Endpoint = "http://override:8000"
	assert.Equal(t, "http://override:8000", cfg.Endpoint())
}

func TestAWSConfigLocalUsesPlaceholderCredentials(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	awsCfg, err := cfg.AWSConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", awsCfg.Region)
	assert.Equal(t, "http://localhost:8000", aws.ToString(awsCfg.BaseEndpoint))

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", creds.AccessKeyID)
}

func TestAWSConfigProductionStaticCredentials(t *testing.T) {
	clearEnv(t)
	cfg := Default()
	cfg.Production = true
	cfg.Region = "ap-southeast-2"
	cfg.Database.AccessKeyID = "AKID"
	cfg.Database.SecretAccessKey = "secret"

	awsCfg, err := cfg.AWSConfig(context.Background())
	require.NoError(t, err)
	assert.Nil(t, awsCfg.BaseEndpoint)
	assert.Equal(t, "ap-southeast-2", awsCfg.Region)

	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKID", creds.AccessKeyID)
}
