// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	KeyHost,
	KeyPort,
	KeyLogLevel,
	KeyAuthSecret,
	KeyReadTimeout,
	KeyReadHeaderTimeout,
	KeyWriteTimeout,
	KeyIdleTimeout,
	KeyMaxHeaderBytes,
	KeyMaxBodyBytes,
	KeyServiceName,
	KeyServiceVersion,
	KeyOTLPEndpoint,
	KeyOTLPProtocol,
	KeySampleRatio,
}

// clearEnv hides any values inherited from the process environment.
// Empty variables are treated as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(key, "")
	}
}

func writeEnvFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("will use the defaults", func(t *testing.T) {
		t.Run("if no source sets a value", func(t *testing.T) {
			clearEnv(t)

			cfg, err := Load(EnvFiles())
			require.NoError(t, err)

			assert.Equal(t, "0.0.0.0", cfg.Host)
			assert.Equal(t, 4000, cfg.Port)
			assert.Equal(t, "0.0.0.0:4000", cfg.Addr())
			assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
			assert.Empty(t, cfg.AuthSecret)
			assert.Equal(t, HTTP{
				ReadTimeout:       5 * time.Second,
				ReadHeaderTimeout: 2 * time.Second,
				WriteTimeout:      10 * time.Second,
				IdleTimeout:       120 * time.Second,
				MaxHeaderBytes:    1 << 20,
				MaxBodyBytes:      1 << 20,
			}, cfg.HTTP)
			assert.Equal(t, Telemetry{
				ServiceName: "blueprint",
				Protocol:    "http/protobuf",
				SampleRatio: 1,
			}, cfg.Telemetry)
		})
	})

	t.Run("will skip missing env files", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load(EnvFiles(filepath.Join(t.TempDir(), ".env")))
		require.NoError(t, err)
		assert.Equal(t, 4000, cfg.Port)
	})

	t.Run("will read values from env files", func(t *testing.T) {
		clearEnv(t)
		dir := t.TempDir()
		env := writeEnvFile(t, dir, ".env", "PORT=5000\nLOG_LEVEL=debug\nAUTH_SECRET=from-env-file\n")
		local := writeEnvFile(t, dir, ".env.local", "PORT=6000\n")

		cfg, err := Load(EnvFiles(env, local))
		require.NoError(t, err)

		assert.Equal(t, 6000, cfg.Port)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, "from-env-file", cfg.AuthSecret)
	})

	t.Run("will prefer environment variables over env files", func(t *testing.T) {
		clearEnv(t)
		env := writeEnvFile(t, t.TempDir(), ".env", "PORT=5000\nHTTP_READ_TIMEOUT=1s\n")
		t.Setenv(KeyPort, "7000")
		t.Setenv(KeyReadTimeout, "250ms")

		cfg, err := Load(EnvFiles(env))
		require.NoError(t, err)

		assert.Equal(t, 7000, cfg.Port)
		assert.Equal(t, 250*time.Millisecond, cfg.HTTP.ReadTimeout)
	})

	t.Run("will read the telemetry settings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(KeyServiceName, "hello")
		t.Setenv(KeyServiceVersion, "v1.2.3")
		t.Setenv(KeyOTLPEndpoint, "http://collector:4317")
		t.Setenv(KeyOTLPProtocol, "grpc")
		t.Setenv(KeySampleRatio, "0.25")

		cfg, err := Load(EnvFiles())
		require.NoError(t, err)

		assert.Equal(t, Telemetry{
			ServiceName:    "hello",
			ServiceVersion: "v1.2.3",
			Endpoint:       "http://collector:4317",
			Protocol:       "grpc",
			SampleRatio:    0.25,
		}, cfg.Telemetry)
	})

	t.Run("will prefer overrides over everything else", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(KeyPort, "7000")

		cfg, err := Load(EnvFiles(), Set(KeyPort, 8000))
		require.NoError(t, err)

		assert.Equal(t, 8000, cfg.Port)
	})

	t.Run("will decode typed values from strings", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(KeyReadTimeout, "750ms")
		t.Setenv(KeyMaxBodyBytes, "2048")
		t.Setenv(KeyLogLevel, "WARN")
		t.Setenv(KeySampleRatio, "0.25")

		cfg, err := Load(EnvFiles())
		require.NoError(t, err)

		assert.Equal(t, 750*time.Millisecond, cfg.HTTP.ReadTimeout)
		assert.Equal(t, int64(2048), cfg.HTTP.MaxBodyBytes)
		assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
		assert.Equal(t, 0.25, cfg.Telemetry.SampleRatio)
	})

	t.Run("will return an InvalidValueError", func(t *testing.T) {
		testCases := map[string][2]string{
			"if the port is not a number":         {KeyPort, "http"},
			"if the port is out of range":         {KeyPort, "70000"},
			"if the log level is unknown":         {KeyLogLevel, "chatty"},
			"if a timeout is not a duration":      {KeyWriteTimeout, "soon"},
			"if max header bytes is not a number": {KeyMaxHeaderBytes, "lots"},
			"if max body bytes is negative":       {KeyMaxBodyBytes, "-1"},
			"if the otlp protocol is unknown":     {KeyOTLPProtocol, "carrier-pigeon"},
			"if the sample ratio is not a number": {KeySampleRatio, "half"},
			"if the sample ratio is out of range": {KeySampleRatio, "1.5"},
		}

		for name, kv := range testCases {
			t.Run(name, func(t *testing.T) {
				clearEnv(t)
				t.Setenv(kv[0], kv[1])

				_, err := Load(EnvFiles())

				var invalid InvalidValueError
				require.ErrorAs(t, err, &invalid)
				assert.Equal(t, kv[0], invalid.Key)
				assert.Equal(t, kv[1], invalid.Value)
			})
		}
	})
}
