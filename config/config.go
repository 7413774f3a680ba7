package config

import (
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"homeswitch/internal/domain/constants"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"github.com/slighter12/go-lib/database/postgres"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "100KB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port int `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	Postgres *postgres.DBConn `json:"postgres" yaml:"postgres" mapstructure:"postgres"`

	Database DatabaseConfig `json:"database" yaml:"database"`

	// Realtime configuration for the per-user event bus
	Realtime *RealtimeConfig `json:"realtime" yaml:"realtime"`

	// PubSub configuration for alert push events
	PubSub *PubSubConfig `json:"pubsub" yaml:"pubsub"`

	// Firebase configuration for push notifications
	Firebase *FirebaseConfig `json:"firebase" yaml:"firebase"`

	// QRCode configuration for pairing QR codes
	QRCode *QRCodeConfig `json:"qrcode" yaml:"qrcode"`

	CommandQueue CommandQueueConfig `json:"commandQueue" yaml:"commandQueue"`

	Alerts AlertsConfig `json:"alerts" yaml:"alerts"`

	Controllers ControllersConfig `json:"controllers" yaml:"controllers"`

	Pairing PairingConfig `json:"pairing" yaml:"pairing"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// RealtimeConfig selects the transport behind the notification fan-out.
type RealtimeConfig struct {
	// Provider type: "memory" for a single instance or "redis" for shared pub/sub
	Provider string `json:"provider" yaml:"provider"`

	RedisAddr     string `json:"redisAddr" yaml:"redisAddr"`
	RedisPassword string `json:"redisPassword" yaml:"redisPassword"`
	RedisDB       int    `json:"redisDb" yaml:"redisDb"`
	ChannelPrefix string `json:"channelPrefix" yaml:"channelPrefix"`

	// Buffered events awaiting delivery; 0 publishes inline
	QueueSize int `json:"queueSize" yaml:"queueSize"`
}

// FirebaseConfig defines Firebase configuration for push notifications
type FirebaseConfig struct {
	ProjectID       string `json:"projectId" yaml:"projectId"`
	CredentialsPath string `json:"credentialsPath" yaml:"credentialsPath"`
}

// QRCodeConfig defines QR code generation configuration
type QRCodeConfig struct {
	Size                 int    `json:"size" yaml:"size"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel" yaml:"errorCorrectionLevel"`
}

// PubSubConfig defines Pub/Sub configuration for event publishing
type PubSubConfig struct {
	// Provider type: "local" for local HTTP or "google" for Google Pub/Sub
	Provider string `json:"provider" yaml:"provider"`

	// Google Cloud project ID (for google provider)
	ProjectID string `json:"projectId" yaml:"projectId"`

	// Pub/Sub topic ID (for google provider)
	TopicID string `json:"topicId" yaml:"topicId"`

	// Local HTTP endpoint for development (for local provider)
	LocalEndpoint string `json:"localEndpoint" yaml:"localEndpoint"`
}

// DatabaseConfig tunes query logging.
type DatabaseConfig struct {
	// Queries slower than this are logged at warn level
	SlowQueryThreshold time.Duration `json:"slowQueryThreshold" yaml:"slowQueryThreshold"`
}

// CommandQueueConfig holds the command lifecycle timings.
type CommandQueueConfig struct {
	CommandTimeout     time.Duration `json:"commandTimeout" yaml:"commandTimeout"`
	SuccessDedupWindow time.Duration `json:"successDedupWindow" yaml:"successDedupWindow"`
	PollBatchSize      int           `json:"pollBatchSize" yaml:"pollBatchSize"`
	SweepSpec          string        `json:"sweepSpec" yaml:"sweepSpec"`
}

type AlertsConfig struct {
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown"`
}

type ControllersConfig struct {
	// Controllers silent for longer than this are marked offline by the sweeper
	OfflineAfter     time.Duration `json:"offlineAfter" yaml:"offlineAfter"`
	ChannelAllowList []string      `json:"channelAllowList" yaml:"channelAllowList"`
}

type PairingConfig struct {
	// Reject pairing requests naming a room owned by someone else
	StrictRoomOwnership bool `json:"strictRoomOwnership" yaml:"strictRoomOwnership"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: POSTGRES_SSLMODE -> postgres.sslMode (not postgres.sslmode)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}

	// Build replicas from environment variables (POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, etc.)
	if cfg.Postgres != nil {
		cfg.Postgres.Replicas = buildReplicasFromEnv()
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects settings the command queue and fan-out cannot run with.
func (cfg *Config) validate() error {
	queue := cfg.CommandQueue
	if queue.SuccessDedupWindow >= queue.CommandTimeout {
		return errors.Errorf("commandQueue.successDedupWindow (%s) must be shorter than commandTimeout (%s)",
			queue.SuccessDedupWindow, queue.CommandTimeout)
	}
	if cfg.Controllers.OfflineAfter < queue.CommandTimeout {
		return errors.Errorf("controllers.offlineAfter (%s) must not be shorter than commandQueue.commandTimeout (%s)",
			cfg.Controllers.OfflineAfter, queue.CommandTimeout)
	}

	for _, channel := range cfg.Controllers.ChannelAllowList {
		if channel == "" || strings.ContainsFunc(channel, func(r rune) bool {
			return !unicode.IsLower(r) && !unicode.IsDigit(r) && r != '_'
		}) {
			return errors.Errorf("controllers.channelAllowList: invalid channel %q, use lowercase letters, digits and underscores", channel)
		}
	}

	switch cfg.Realtime.Provider {
	case constants.RealtimeProviderMemory:
	case constants.RealtimeProviderRedis:
		if cfg.Realtime.RedisAddr == "" {
			return errors.New("realtime.redisAddr is required for the redis provider")
		}
	default:
		return errors.Errorf("unknown realtime provider: %s", cfg.Realtime.Provider)
	}
	if cfg.Realtime.QueueSize < 0 {
		return errors.New("realtime.queueSize must not be negative")
	}

	return nil
}

// applyDefaults fills timing and sizing values left empty by the config file.
func (cfg *Config) applyDefaults() {
	if cfg.Database.SlowQueryThreshold <= 0 {
		cfg.Database.SlowQueryThreshold = constants.DefaultSlowQueryThreshold
	}
	if cfg.CommandQueue.CommandTimeout <= 0 {
		cfg.CommandQueue.CommandTimeout = constants.DefaultCommandTimeout
	}
	if cfg.CommandQueue.SuccessDedupWindow <= 0 {
		cfg.CommandQueue.SuccessDedupWindow = constants.DefaultSuccessDedupWindow
	}
	if cfg.CommandQueue.PollBatchSize <= 0 {
		cfg.CommandQueue.PollBatchSize = constants.DefaultPollBatchSize
	}
	if strings.TrimSpace(cfg.CommandQueue.SweepSpec) == "" {
		cfg.CommandQueue.SweepSpec = constants.DefaultSweepSpec
	}
	if cfg.Alerts.Cooldown <= 0 {
		cfg.Alerts.Cooldown = constants.DefaultAlertCooldown
	}
	if cfg.Controllers.OfflineAfter <= 0 {
		cfg.Controllers.OfflineAfter = constants.DefaultControllerOfflineAfter
	}
	if len(cfg.Controllers.ChannelAllowList) == 0 {
		cfg.Controllers.ChannelAllowList = slices.Clone(constants.DefaultChannelAllowList)
	}
	if cfg.Realtime == nil {
		cfg.Realtime = &RealtimeConfig{}
	}
	if cfg.Realtime.Provider == "" {
		cfg.Realtime.Provider = constants.RealtimeProviderMemory
	}
	if cfg.Realtime.ChannelPrefix == "" {
		cfg.Realtime.ChannelPrefix = constants.DefaultRealtimeChannelPrefix
	}
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}

// buildReplicasFromEnv builds the replicas slice from environment variables.
// Environment variable format: POSTGRES_REPLICAS_{index}_{field}
// Example: POSTGRES_REPLICAS_0_HOST, POSTGRES_REPLICAS_0_PORT, POSTGRES_REPLICAS_0_USERNAME, POSTGRES_REPLICAS_0_PASSWORD
func buildReplicasFromEnv() []postgres.ConnectionConfig {
	var replicas []postgres.ConnectionConfig

	for i := 0; ; i++ {
		prefix := "POSTGRES_REPLICAS_" + strconv.Itoa(i) + "_"

		host := os.Getenv(prefix + "HOST")
		port := os.Getenv(prefix + "PORT")
		if host == "" || port == "" {
			// No more replicas or incomplete configuration.
			break
		}

		replica := postgres.ConnectionConfig{
			Host:     host,
			Port:     port,
			UserName: os.Getenv(prefix + "USERNAME"),
			Password: os.Getenv(prefix + "PASSWORD"),
		}

		replicas = append(replicas, replica)
	}

	return replicas
}
