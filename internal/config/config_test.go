package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	require.NoError(t, Load())

	assert.Equal(t, ":8080", APIAddr())
	assert.Equal(t, "file", ModelStore())
	assert.Equal(t, "models", ModelDir())
	assert.Equal(t, 250, ModelTrees())
	assert.Equal(t, int64(42), ModelSeed())
	assert.False(t, ForceRetrain())
	assert.False(t, UseCloudServices())
	assert.Equal(t, "energy/records", MQTTTopic())
	assert.Equal(t, 30*time.Second, DashboardCacheTTL())
	assert.Equal(t, 20*time.Second, RecommendationTimeout())
	assert.Equal(t, "llama-3.1-8b-instant", GroqModel())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()
	t.Setenv("MODEL_STORE", "MinIO")
	t.Setenv("FORCE_RETRAIN", "true")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MINIO_BUCKET", "models-test")
	require.NoError(t, Load())

	assert.Equal(t, "minio", ModelStore())
	assert.True(t, ForceRetrain())
	m := MinIOConfig()
	assert.True(t, m.UseSSL)
	assert.Equal(t, "models-test", m.Bucket)
}

func TestCORSOrigins(t *testing.T) {
	t.Cleanup(viper.Reset)
	tests := []struct {
		raw, want string
	}{
		{"http://a, http://b ,", "http://a,http://b"},
		{"", ""},
		{"*", "*"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			viper.Set("CORS_ORIGINS", tt.raw)
			assert.Equal(t, tt.want, CORSOrigins())
		})
	}
}

func TestSetupLogging(t *testing.T) {
	t.Cleanup(func() {
		viper.Reset()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			viper.Set("LOG_LEVEL", tt.level)
			SetupLogging()
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}
