package configuration

import (
	"github.com/BurntSushi/toml"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/pkg/errors"

	"farmsync/internal/logger"
)

type Config struct {
	ServerAddress string
	DataDir       string
	RedisAddress  string
	RedisChannel  string
	LogLevel      logger.Level
	LogToFile     bool
	AuthSecretKey jwk.Key
	AccessKey     string
}

type tomlConfig struct {
	ServerAddress string `toml:"server_address"`
	DataDir       string `toml:"data_dir"`
	RedisAddress  string `toml:"redis_address"`
	RedisChannel  string `toml:"redis_channel"`
	LogLevel      string `toml:"log_level"`
	LogToFile     bool   `toml:"log_to_file"`
	AuthSecretKey string `toml:"auth_secret_key"`
	AccessKey     string `toml:"access_key"`
}

func GetConfig(path string) (*Config, error) {
	var tc tomlConfig
	_, err := toml.DecodeFile(path, &tc)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode toml file with path: %s", path)
	}

	if tc.ServerAddress == "" {
		tc.ServerAddress = "localhost:8877"
	}

	if tc.DataDir == "" {
		tc.DataDir = "data"
	}

	if tc.RedisChannel == "" {
		tc.RedisChannel = "booking-sync"
	}

	if tc.LogLevel == "" {
		tc.LogLevel = "INFO"
	}
	logLevel, err := logger.ParseLevel(tc.LogLevel)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse log_level: %s", tc.LogLevel)
	}

	if tc.AuthSecretKey == "" {
		return nil, errors.New("auth_secret_key is not set")
	}

	authSecretKey, err := jwk.FromRaw([]byte(tc.AuthSecretKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create key from auth_secret_key")
	}

	return &Config{
		ServerAddress: tc.ServerAddress,
		DataDir:       tc.DataDir,
		RedisAddress:  tc.RedisAddress,
		RedisChannel:  tc.RedisChannel,
		LogLevel:      logLevel,
		LogToFile:     tc.LogToFile,
		AuthSecretKey: authSecretKey,
		AccessKey:     tc.AccessKey,
	}, nil
}
