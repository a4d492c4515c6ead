package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/cachekit"
	pr "github.com/unkn0wn-root/cachekit/provider"
	"github.com/unkn0wn-root/cachekit/provider/file"
	redisprov "github.com/unkn0wn-root/cachekit/provider/redis"
	s3prov "github.com/unkn0wn-root/cachekit/provider/s3"
)

const (
	backendFile  = "file"
	backendRedis = "redis"
	backendS3    = "s3"
)

// fileConfig holds the backend settings of the --config file. The four cache
// keys sit at the top level next to them and are read by cachekit.LoadConfig:
//
//	enabled: true
//	compress: true
//	dir: data/cache
//	expire: 3600
//	backend: redis
//	redis:
//	  url: redis://localhost:6379/0
type fileConfig struct {
	Backend string `yaml:"backend"`
	Redis   struct {
		URL           string `yaml:"url"`
		LockNamespace string `yaml:"lock_namespace"`
	} `yaml:"redis"`
	S3 struct {
		Bucket   string `yaml:"bucket"`
		Region   string `yaml:"region"`
		Endpoint string `yaml:"endpoint"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"s3"`
}

func loadFileConfig(path string) (fileConfig, cachekit.Config, error) {
	var fc fileConfig
	cfg, err := cachekit.LoadConfig(path)
	if err != nil {
		return fc, cachekit.Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc, cachekit.Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, cachekit.Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return fc, cfg, nil
}

// openProvider builds the storage backend named by backend (or fc.Backend).
func openProvider(ctx context.Context, fc fileConfig, backend string) (pr.Provider, error) {
	if backend == "" {
		backend = fc.Backend
	}
	switch strings.ToLower(backend) {
	case "", backendFile:
		return file.New(file.Config{}), nil

	case backendRedis:
		if fc.Redis.URL == "" {
			return nil, &cachekit.ConfigError{Field: "redis.url", Reason: "is required"}
		}
		opts, err := goredis.ParseURL(fc.Redis.URL)
		if err != nil {
			return nil, &cachekit.ConfigError{Field: "redis.url", Reason: err.Error()}
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisprov.New(redisprov.Config{
			Client:        client,
			CloseClient:   true,
			LockNamespace: fc.Redis.LockNamespace,
		})

	case backendS3:
		return s3prov.NewFromConfig(ctx, s3prov.Config{
			Bucket:   fc.S3.Bucket,
			Prefix:   fc.S3.Prefix,
			Region:   fc.S3.Region,
			Endpoint: fc.S3.Endpoint,
		})

	default:
		return nil, &cachekit.ConfigError{Field: "backend", Reason: fmt.Sprintf("unknown backend %q", backend)}
	}
}
