package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Download DownloadConfig `mapstructure:"download"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

// DownloadConfig contains relay-related configuration
type DownloadConfig struct {
	ChunkSize int `mapstructure:"chunk_size"` // bytes per relay read
}

// ResolverConfig contains upstream fetch configuration
type ResolverConfig struct {
	RequestTimeout time.Duration `mapstructure:"request_timeout"` // metadata calls and response headers
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`    // max gap between stream reads, 0 disables
	AllowDirect    bool          `mapstructure:"allow_direct"`    // accept plain http(s) file URLs
	UserAgent      string        `mapstructure:"user_agent"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	LogsDir    string `mapstructure:"logs_dir"`    // categorized log files, empty disables
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Download: DownloadConfig{
			ChunkSize: 64 * 1024,
		},
		Resolver: ResolverConfig{
			RequestTimeout: 30 * time.Second,
			ReadTimeout:    60 * time.Second,
			AllowDirect:    false,
			UserAgent:      "ytdl-relay/1.0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
