// Package log builds the zap loggers used by bloomgate components.
package log

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/bloomgate/go-bloomgate/config"
)

// NewWithLevel creates a logger with a fixed level and with a set of (optional) hooks.
func NewWithLevel(w io.Writer,
	module string,
	level zap.AtomicLevel,
	encoder zapcore.Encoder,
	hooks ...func(zapcore.Entry) error,
) *zap.Logger {
	core := zapcore.NewCore(encoder, zapcore.AddSync(w), level)
	return zap.New(zapcore.RegisterHooks(core, hooks...)).Named(module)
}

// Encoder returns the encoder for the configured encoder kind.
func Encoder(kind config.LogEncoder) (zapcore.Encoder, error) {
	switch kind {
	case config.JSONLogEncoder:
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), nil
	case config.ConsoleLogEncoder, "":
		return zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), nil
	}
	return nil, fmt.Errorf("unknown log encoder %q", kind)
}

// Factory creates per module loggers that share an encoder and an output.
type Factory struct {
	w       io.Writer
	encoder zapcore.Encoder
	app     *zap.Logger
}

// New creates a Factory writing to w (stdout if nil). The application logger
// uses the app level of cfg.
func New(cfg config.LoggerConfig, w io.Writer) (*Factory, error) {
	if w == nil {
		w = os.Stdout
	}
	encoder, err := Encoder(cfg.Encoder)
	if err != nil {
		return nil, err
	}
	// modules share w
	f := &Factory{w: zapcore.Lock(zapcore.AddSync(w)), encoder: encoder}
	f.app, err = f.Module("app", cfg.AppLoggerLevel)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// App returns the application logger.
func (f *Factory) App() *zap.Logger {
	return f.app
}

// Module creates a logger named after module, enabled at level and above.
func (f *Factory) Module(module, level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("level for %s: %w", module, err)
	}
	return NewWithLevel(f.w, module, lvl, f.encoder.Clone()), nil
}
