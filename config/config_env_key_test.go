package config

import "testing"

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"commandQueue": map[string]any{
			"commandTimeout": "30s",
			"pollBatchSize":  10,
		},
		"realtime": map[string]any{
			"redisAddr": "",
		},
		"controllers": map[string]any{
			"offlineAfter": "2m",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "COMMANDQUEUE_COMMANDTIMEOUT", want: "commandQueue.commandTimeout"},
		{envKey: "COMMANDQUEUE_POLLBATCHSIZE", want: "commandQueue.pollBatchSize"},
		{envKey: "REALTIME_REDISADDR", want: "realtime.redisAddr"},
		{envKey: "CONTROLLERS_OFFLINEAFTER", want: "controllers.offlineAfter"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}
