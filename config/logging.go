package config

import "go.uber.org/zap/zapcore"

// LogEncoder defines a log encoder kind.
type LogEncoder = string

const (
	defaultLoggingLevel = zapcore.InfoLevel
	// ConsoleLogEncoder represents logging with plain text.
	ConsoleLogEncoder LogEncoder = "console"
	// JSONLogEncoder represents logging with JSON.
	JSONLogEncoder LogEncoder = "json"
)

// LoggerConfig holds the logging level for each module.
type LoggerConfig struct {
	Encoder                LogEncoder `mapstructure:"log-encoder"`
	AppLoggerLevel         string     `mapstructure:"app"`
	ReconcilerLoggerLevel  string     `mapstructure:"reconciler"`
	ModLogLoggerLevel      string     `mapstructure:"modlog"`
	SiteSyncLoggerLevel    string     `mapstructure:"sitesync"`
	APILoggerLevel         string     `mapstructure:"api"`
	ClientLoggerLevel      string     `mapstructure:"client"`
	FilterStoreLoggerLevel string     `mapstructure:"filter-store"`
}

func defaultLoggingConfig() LoggerConfig {
	return LoggerConfig{
		Encoder:                ConsoleLogEncoder,
		AppLoggerLevel:         defaultLoggingLevel.String(),
		ReconcilerLoggerLevel:  defaultLoggingLevel.String(),
		ModLogLoggerLevel:      defaultLoggingLevel.String(),
		SiteSyncLoggerLevel:    defaultLoggingLevel.String(),
		APILoggerLevel:         defaultLoggingLevel.String(),
		ClientLoggerLevel:      zapcore.WarnLevel.String(),
		FilterStoreLoggerLevel: defaultLoggingLevel.String(),
	}
}
