package config

import (
	"context"
	"errors"
	"fmt"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
	"os"
	"time"
)

const (
	DefaultConfigFile = "config.yml"
	DefaultEnvFile    = ".env"

	defaultRegion        = "us-east-1"
	defaultLocalEndpoint = "http://localhost:8000"
	// Placeholder credentials for DynamoDB Local, which accepts anything.
	localAccessKeyID     = "local"
	localSecretAccessKey = "local"
)

type Throttle struct {
	DeleteInterval time.Duration `yaml:"delete_interval" envconfig:"THROTTLE_DELETE_INTERVAL"`
	SettleDelay    time.Duration `yaml:"settle_delay" envconfig:"THROTTLE_SETTLE_DELAY"`
	CreateDelay    time.Duration `yaml:"create_delay" envconfig:"THROTTLE_CREATE_DELAY"`
	ActiveTimeout  time.Duration `yaml:"active_timeout" envconfig:"THROTTLE_ACTIVE_TIMEOUT"`
}

type Capacity struct {
	Read  int64 `yaml:"read" envconfig:"CAPACITY_READ"`
	Write int64 `yaml:"write" envconfig:"CAPACITY_WRITE"`
}

type Config struct {
	Production bool   `yaml:"production" envconfig:"PRODUCTION"`
	Region     string `yaml:"region" envconfig:"AWS_REGION"`
	Database   struct {
		Endpoint        string `yaml:"endpoint" envconfig:"DYNAMODB_ENDPOINT"`
		LocalEndpoint   string `yaml:"local_endpoint" envconfig:"DYNAMODB_LOCAL_ENDPOINT"`
		AccessKeyID     string `yaml:"-" envconfig:"AWS_ACCESS_KEY_ID"`
		SecretAccessKey string `yaml:"-" envconfig:"AWS_SECRET_ACCESS_KEY"`
	} `yaml:"database"`
	FixturesDir string   `yaml:"fixtures_dir" envconfig:"FIXTURES_DIR"`
	Throttle    Throttle `yaml:"throttle"`
	Capacity    Capacity `yaml:"capacity"`
	LogLevel    string   `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

func Default() Config {
	var cfg Config
	cfg.Region = defaultRegion
	cfg.Database.LocalEndpoint = defaultLocalEndpoint
	cfg.FixturesDir = "fixtures"
	cfg.Throttle = Throttle{
		DeleteInterval: 800 * time.Millisecond,
		SettleDelay:    time.Second,
		CreateDelay:    2 * time.Second,
		ActiveTimeout:  5 * time.Minute,
	}
	cfg.Capacity = Capacity{Read: 5, Write: 5}
	cfg.LogLevel = "info"
	return cfg
}

// Load layers the defaults, the yaml file, the dotenv file and the process
// environment, in that order. Missing files are not an error.
func Load(configFile, envFile string) (Config, error) {
	cfg := Default()
	if err := readFile(configFile, &cfg); err != nil {
		return cfg, err
	}
	if envFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("read environment: %w", err)
	}
	return cfg, cfg.Validate()
}

func readFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.Region == "" {
		return errors.New("region cannot be empty")
	}
	if c.FixturesDir == "" {
		return errors.New("fixtures_dir cannot be empty")
	}
	if c.Capacity.Read <= 0 || c.Capacity.Write <= 0 {
		return fmt.Errorf("capacity must be positive, got %d/%d", c.Capacity.Read, c.Capacity.Write)
	}
	if c.Throttle.DeleteInterval < 0 || c.Throttle.SettleDelay < 0 || c.Throttle.CreateDelay < 0 {
		return errors.New("throttle delays cannot be negative")
	}
	if (c.Database.AccessKeyID == "") != (c.Database.SecretAccessKey == "") {
		return errors.New("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// Endpoint is the DynamoDB endpoint override, or "" for the AWS default.
func (c Config) Endpoint() string {
	if c.Database.Endpoint != "" {
		return c.Database.Endpoint
	}
	if !c.Production {
		return c.Database.LocalEndpoint
	}
	return ""
}

// AWSConfig resolves the SDK configuration. Outside production it targets the
// local endpoint with placeholder credentials.
func (c Config) AWSConfig(ctx context.Context) (aws.Config, error) {
	var provider aws.CredentialsProvider
	switch {
	case !c.Production:
		provider = credentials.NewStaticCredentialsProvider(localAccessKeyID, localSecretAccessKey, "")
	case c.Database.AccessKeyID != "":
		provider = credentials.NewStaticCredentialsProvider(c.Database.AccessKeyID, c.Database.SecretAccessKey, "")
	}

	// Load config (honors AWS_REGION, AWS_PROFILE, etc.)
	cfg, err := awsconfig.LoadDefaultConfig(ctx, func(o *awsconfig.LoadOptions) error {
		o.Region = c.Region
		if provider != nil {
			o.Credentials = provider
		}
		return nil
	})
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed loading AWS config: %w", err)
	}

	if endpoint := c.Endpoint(); endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return cfg, nil
}
