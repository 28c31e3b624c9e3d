package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Application config structure
type AppConfig struct {
	Name     string `mapstructure:"service_name" validate:"required"`
	Version  string `mapstructure:"version" validate:"required"`
	LogLevel string `mapstructure:"log_level" validate:"required"`
	LogFile  string `mapstructure:"log_file"`

	// DataDir holds the sqlite database and per-segment audio files.
	DataDir string `mapstructure:"data_dir" validate:"required"`

	// Segment length for the recorder. The original app shipped with several
	// debug values over time; this is the one authoritative knob.
	SegmentDurationSeconds int `mapstructure:"segment_duration_seconds" validate:"required,gt=0"`

	// Minimum free disk space required before a recording may start.
	MinFreeSpaceMB uint64 `mapstructure:"min_free_space_mb" validate:"required"`

	TranscriptionConfig TranscriptionConfig `mapstructure:"transcription" validate:"required"`
	ConnectivityConfig  ConnectivityConfig  `mapstructure:"connectivity" validate:"required"`
}

type TranscriptionConfig struct {
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`
	ApiKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model" validate:"required"`
	// Language hint forwarded to the remote service; "auto" lets the service
	// detect.
	Language       string `mapstructure:"language"`
	MaxRetries     uint64 `mapstructure:"max_retries" validate:"required"`
	BackoffCapSecs int    `mapstructure:"backoff_cap_seconds" validate:"required,gt=0"`

	// ChatModel serves title/summary/keywords/Q&A requests.
	ChatModel string `mapstructure:"chat_model" validate:"required"`

	// FallbackBinary is the local recognizer executable tried after retries
	// are exhausted; empty disables the fallback.
	FallbackBinary string `mapstructure:"fallback_binary"`
	FallbackModel  string `mapstructure:"fallback_model"`
}

type ConnectivityConfig struct {
	ProbeURL          string `mapstructure:"probe_url" validate:"required,url"`
	ProbeTimeoutSecs  int    `mapstructure:"probe_timeout_seconds" validate:"required,gt=0"`
	ProbeIntervalSecs int    `mapstructure:"probe_interval_seconds" validate:"required,gt=0"`
}

func (c TranscriptionConfig) BackoffCap() time.Duration {
	return time.Duration(c.BackoffCapSecs) * time.Second
}

func (c ConnectivityConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSecs) * time.Second
}

func (c ConnectivityConfig) ProbeInterval() time.Duration {
	return time.Duration(c.ProbeIntervalSecs) * time.Second
}

func (c AppConfig) SegmentDuration() time.Duration {
	return time.Duration(c.SegmentDurationSeconds) * time.Second
}

// reading config and intializing configs for application
func InitConfig() (*viper.Viper, error) {
	vConfig := viper.NewWithOptions(viper.KeyDelimiter("__"))

	vConfig.AddConfigPath(".")
	vConfig.SetConfigName(".env")
	path := os.Getenv("ENV_PATH")
	if path != "" {
		log.Printf("env path %v", path)
		vConfig.SetConfigFile(path)
	}
	vConfig.SetConfigType("env")
	vConfig.AutomaticEnv()

	setDefault(vConfig)
	if err := vConfig.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		log.Printf("Reading from env variables.")
	}

	return vConfig, nil
}

func setDefault(v *viper.Viper) {
	// setting all default values

	v.SetDefault("SERVICE_NAME", "murmur-recorder")
	v.SetDefault("VERSION", "0.0.1")
	v.SetDefault("LOG_LEVEL", "debug")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("SEGMENT_DURATION_SECONDS", 20)
	v.SetDefault("MIN_FREE_SPACE_MB", 100)

	v.SetDefault("TRANSCRIPTION__ENDPOINT", "https://api.openai.com/v1/audio/transcriptions")
	v.SetDefault("TRANSCRIPTION__API_KEY", "")
	v.SetDefault("TRANSCRIPTION__MODEL", "gpt-4o-mini-transcribe")
	v.SetDefault("TRANSCRIPTION__LANGUAGE", "auto")
	v.SetDefault("TRANSCRIPTION__MAX_RETRIES", 5)
	v.SetDefault("TRANSCRIPTION__BACKOFF_CAP_SECONDS", 30)
	v.SetDefault("TRANSCRIPTION__CHAT_MODEL", "gpt-4o-mini")
	v.SetDefault("TRANSCRIPTION__FALLBACK_BINARY", "")
	v.SetDefault("TRANSCRIPTION__FALLBACK_MODEL", "")

	v.SetDefault("CONNECTIVITY__PROBE_URL", "https://www.apple.com")
	v.SetDefault("CONNECTIVITY__PROBE_TIMEOUT_SECONDS", 3)
	v.SetDefault("CONNECTIVITY__PROBE_INTERVAL_SECONDS", 15)
}

// Getting application config from viper
func GetApplicationConfig(v *viper.Viper) (*AppConfig, error) {
	var config AppConfig
	err := v.Unmarshal(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}

	// valdating the app config
	validate := validator.New()
	err = validate.Struct(&config)
	if err != nil {
		log.Printf("%+v\n", err)
		return nil, err
	}
	return &config, nil
}
