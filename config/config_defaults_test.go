package config

import (
	"testing"
	"time"

	"homeswitch/internal/domain/constants"

	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_FillsEmptyTimings(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, 200*time.Millisecond, cfg.Database.SlowQueryThreshold)
	assert.Equal(t, 30*time.Second, cfg.CommandQueue.CommandTimeout)
	assert.Equal(t, 5*time.Second, cfg.CommandQueue.SuccessDedupWindow)
	assert.Equal(t, 10, cfg.CommandQueue.PollBatchSize)
	assert.Equal(t, "@every 30s", cfg.CommandQueue.SweepSpec)
	assert.Equal(t, 10*time.Minute, cfg.Alerts.Cooldown)
	assert.Equal(t, constants.DefaultControllerOfflineAfter, cfg.Controllers.OfflineAfter)
	assert.Contains(t, cfg.Controllers.ChannelAllowList, "kitchen")
	assert.Contains(t, cfg.Controllers.ChannelAllowList, "fan")
	if assert.NotNil(t, cfg.Realtime) {
		assert.Equal(t, constants.RealtimeProviderMemory, cfg.Realtime.Provider)
	}
}

func TestApplyDefaults_KeepsConfiguredValues(t *testing.T) {
	cfg := &Config{}
	cfg.CommandQueue.CommandTimeout = 45 * time.Second
	cfg.CommandQueue.PollBatchSize = 3
	cfg.Alerts.Cooldown = time.Minute
	cfg.Controllers.ChannelAllowList = []string{"garage"}
	cfg.applyDefaults()

	assert.Equal(t, 45*time.Second, cfg.CommandQueue.CommandTimeout)
	assert.Equal(t, 3, cfg.CommandQueue.PollBatchSize)
	assert.Equal(t, time.Minute, cfg.Alerts.Cooldown)
	assert.Equal(t, []string{"garage"}, cfg.Controllers.ChannelAllowList)
}

func TestApplyDefaults_DoesNotAliasDefaultAllowList(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Controllers.ChannelAllowList[0] = "mutated"

	assert.NotEqual(t, "mutated", constants.DefaultChannelAllowList[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:    "dedup window not shorter than timeout",
			mutate:  func(cfg *Config) { cfg.CommandQueue.SuccessDedupWindow = 30 * time.Second },
			wantErr: "successDedupWindow",
		},
		{
			name:    "offline threshold below timeout",
			mutate:  func(cfg *Config) { cfg.Controllers.OfflineAfter = 10 * time.Second },
			wantErr: "offlineAfter",
		},
		{
			name:    "channel with spaces",
			mutate:  func(cfg *Config) { cfg.Controllers.ChannelAllowList = []string{"living room"} },
			wantErr: "invalid channel",
		},
		{
			name:    "redis without address",
			mutate:  func(cfg *Config) { cfg.Realtime.Provider = constants.RealtimeProviderRedis },
			wantErr: "redisAddr",
		},
		{
			name: "redis with address",
			mutate: func(cfg *Config) {
				cfg.Realtime.Provider = constants.RealtimeProviderRedis
				cfg.Realtime.RedisAddr = "localhost:6379"
			},
		},
		{
			name:    "unknown provider",
			mutate:  func(cfg *Config) { cfg.Realtime.Provider = "nats" },
			wantErr: "unknown realtime provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.applyDefaults()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
