// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package config loads process configuration from dotenv files and
// environment variables.
//
// Sources in order of precedence:
//  1. values set with [Set]
//  2. environment variables
//  3. .env.local
//  4. .env
//  5. defaults
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Keys understood by [Load].
const (
	KeyHost              = "LISTEN_HOST"
	KeyPort              = "PORT"
	KeyLogLevel          = "LOG_LEVEL"
	KeyAuthSecret        = "AUTH_SECRET"
	KeyReadTimeout       = "HTTP_READ_TIMEOUT"
	KeyReadHeaderTimeout = "HTTP_READ_HEADER_TIMEOUT"
	KeyWriteTimeout      = "HTTP_WRITE_TIMEOUT"
	KeyIdleTimeout       = "HTTP_IDLE_TIMEOUT"
	KeyMaxHeaderBytes    = "HTTP_MAX_HEADER_BYTES"
	KeyMaxBodyBytes      = "HTTP_MAX_BODY_BYTES"
	KeyServiceName       = "OTEL_SERVICE_NAME"
	KeyServiceVersion    = "OTEL_SERVICE_VERSION"
	KeyOTLPEndpoint      = "OTEL_EXPORTER_OTLP_ENDPOINT"
	KeyOTLPProtocol      = "OTEL_EXPORTER_OTLP_PROTOCOL"
	KeySampleRatio       = "OTEL_TRACES_SAMPLER_RATIO"
)

// HTTP holds the net/http server settings.
type HTTP struct {
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	// MaxBodyBytes limits request bodies read by routes. Zero disables the limit.
	MaxBodyBytes int64
}

// Telemetry holds the OpenTelemetry SDK settings.
//
// Traces and metrics are only exported when Endpoint is set. Protocol is
// either "grpc" or "http/protobuf".
type Telemetry struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Protocol       string
	SampleRatio    float64
}

// Config is the configuration of a blueprint service.
type Config struct {
	Host       string
	Port       int
	LogLevel   slog.Level
	AuthSecret string
	HTTP       HTTP
	Telemetry  Telemetry
}

// Addr returns the address the service listens on.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// InvalidValueError is returned when a configured value cannot be parsed.
type InvalidValueError struct {
	Key   string
	Value string
	Cause error
}

// Error implements the [error] interface.
func (e InvalidValueError) Error() string {
	return fmt.Sprintf("config: invalid value for %s: %q: %v", e.Key, e.Value, e.Cause)
}

// Unwrap returns the underlying cause.
func (e InvalidValueError) Unwrap() error {
	return e.Cause
}

// Options configure [Load].
type Options struct {
	envFiles  []string
	overrides map[string]any
}

// Option sets values on [Options].
type Option func(*Options)

// EnvFiles replaces the dotenv files read by [Load]. Later files take
// precedence over earlier ones. Missing files are skipped.
func EnvFiles(paths ...string) Option {
	return func(o *Options) {
		o.envFiles = paths
	}
}

// Set overrides a key regardless of any other source.
func Set(key string, value any) Option {
	return func(o *Options) {
		o.overrides[key] = value
	}
}

// Load reads the configuration.
func Load(opts ...Option) (Config, error) {
	o := &Options{
		envFiles:  []string{".env", ".env.local"},
		overrides: make(map[string]any),
	}
	for _, opt := range opts {
		opt(o)
	}

	v := viper.New()
	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, 4000)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyReadTimeout, 5*time.Second)
	v.SetDefault(KeyReadHeaderTimeout, 2*time.Second)
	v.SetDefault(KeyWriteTimeout, 10*time.Second)
	v.SetDefault(KeyIdleTimeout, 120*time.Second)
	v.SetDefault(KeyMaxHeaderBytes, 1<<20)
	v.SetDefault(KeyMaxBodyBytes, 1<<20)
	v.SetDefault(KeyServiceName, "blueprint")
	v.SetDefault(KeyOTLPProtocol, "http/protobuf")
	v.SetDefault(KeySampleRatio, 1.0)

	for _, path := range o.envFiles {
		values, err := godotenv.Read(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: failed to read %s: %w", path, err)
		}

		m := make(map[string]any, len(values))
		for k, val := range values {
			m[k] = val
		}
		err = v.MergeConfigMap(m)
		if err != nil {
			return Config{}, err
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, value := range o.overrides {
		v.Set(key, value)
	}

	return decode(v)
}

var decodeHook = mapstructure.ComposeDecodeHookFunc(
	mapstructure.StringToTimeDurationHookFunc(),
	mapstructure.TextUnmarshallerHookFunc(),
)

// decodeValue converts a raw viper value, usually a string from the
// environment or a dotenv file, into target.
func decodeValue(value, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(value)
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	fields := []struct {
		key    string
		target any
	}{
		{key: KeyHost, target: &cfg.Host},
		{key: KeyPort, target: &cfg.Port},
		{key: KeyLogLevel, target: &cfg.LogLevel},
		{key: KeyAuthSecret, target: &cfg.AuthSecret},
		{key: KeyReadTimeout, target: &cfg.HTTP.ReadTimeout},
		{key: KeyReadHeaderTimeout, target: &cfg.HTTP.ReadHeaderTimeout},
		{key: KeyWriteTimeout, target: &cfg.HTTP.WriteTimeout},
		{key: KeyIdleTimeout, target: &cfg.HTTP.IdleTimeout},
		{key: KeyMaxHeaderBytes, target: &cfg.HTTP.MaxHeaderBytes},
		{key: KeyMaxBodyBytes, target: &cfg.HTTP.MaxBodyBytes},
		{key: KeyServiceName, target: &cfg.Telemetry.ServiceName},
		{key: KeyServiceVersion, target: &cfg.Telemetry.ServiceVersion},
		{key: KeyOTLPEndpoint, target: &cfg.Telemetry.Endpoint},
		{key: KeyOTLPProtocol, target: &cfg.Telemetry.Protocol},
		{key: KeySampleRatio, target: &cfg.Telemetry.SampleRatio},
	}

	var errs []error
	invalid := func(key string, err error) {
		errs = append(errs, InvalidValueError{Key: key, Value: v.GetString(key), Cause: err})
	}

	for _, f := range fields {
		value := v.Get(f.key)
		if value == nil {
			continue
		}
		err := decodeValue(value, f.target)
		if err != nil {
			invalid(f.key, err)
		}
	}

	if cfg.Port < 0 || cfg.Port > 65535 {
		invalid(KeyPort, errors.New("port out of range"))
	}
	if cfg.HTTP.MaxBodyBytes < 0 {
		invalid(KeyMaxBodyBytes, errors.New("must not be negative"))
	}

	switch cfg.Telemetry.Protocol {
	case "grpc", "http/protobuf":
	default:
		invalid(KeyOTLPProtocol, errors.New("protocol must be grpc or http/protobuf"))
	}

	ratio := cfg.Telemetry.SampleRatio
	if ratio < 0 || ratio > 1 {
		invalid(KeySampleRatio, errors.New("ratio must be between 0 and 1"))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}
