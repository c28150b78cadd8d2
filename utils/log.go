package utils

import (
	"encoding"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrUnknownLogLevel = fmt.Errorf(
	"unknown log level (known: %s, %s, %s, %s, %s)",
	"trace", "debug", "info", "warn", "error",
)

// The following are necessary for Cobra and Viper, respectively, to unmarshal log level
// CLI/config parameters properly.
var (
	_ pflag.Value              = (*LogLevel)(nil)
	_ encoding.TextUnmarshaler = (*LogLevel)(nil)
)

const (
	TRACE zapcore.Level = iota - 2
	DEBUG
	INFO
	WARN
	ERROR
)

const timeFormat = "15:04:05.000 02/01/2006 -07:00"

// LogLevel can be changed while the node is running, see HTTPLogSettings.
type LogLevel struct {
	atomicLevel zap.AtomicLevel
}

func NewLogLevel(level zapcore.Level) *LogLevel {
	return &LogLevel{atomicLevel: zap.NewAtomicLevelAt(level)}
}

func (l LogLevel) GetAtomicLevel() zap.AtomicLevel {
	return l.atomicLevel
}

func (l LogLevel) MarshalYAML() (any, error) {
	return l.String(), nil
}

func (l LogLevel) String() string {
	switch l.Level() {
	case TRACE:
		return "trace"
	case DEBUG:
		return "debug"
	case INFO:
		return "info"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		// Should not happen.
		panic(ErrUnknownLogLevel)
	}
}

func (l LogLevel) Level() zapcore.Level {
	return l.atomicLevel.Level()
}

func (l *LogLevel) Set(s string) error {
	var level zapcore.Level
	switch s {
	case "TRACE", "trace":
		level = TRACE
	case "DEBUG", "debug":
		level = DEBUG
	case "INFO", "info":
		level = INFO
	case "WARN", "warn":
		level = WARN
	case "ERROR", "error":
		level = ERROR
	default:
		return ErrUnknownLogLevel
	}

	// zero value LogLevel has no atomic level attached yet
	if l.atomicLevel == (zap.AtomicLevel{}) {
		l.atomicLevel = zap.NewAtomicLevelAt(level)
		return nil
	}
	l.atomicLevel.SetLevel(level)
	return nil
}

func (l *LogLevel) Type() string {
	return "LogLevel"
}

func (l *LogLevel) MarshalJSON() ([]byte, error) {
	return json.RawMessage(`"` + l.String() + `"`), nil
}

func (l *LogLevel) UnmarshalText(text []byte) error {
	return l.Set(string(text))
}

type Logger interface {
	SimpleLogger
	Infof(format string, args ...any)
	Fatalf(format string, args ...any)
}

type SimpleLogger interface {
	Tracew(msg string, keysAndValues ...any)
	Debugw(msg string, keysAndValues ...any)
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

type ZapLogger struct {
	*zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

func NewNopZapLogger() *ZapLogger {
	return &ZapLogger{zap.NewNop().Sugar()}
}

func NewZapLogger(logLevel *LogLevel, colour bool) (*ZapLogger, error) {
	config := zap.NewProductionConfig()
	config.Sampling = nil
	config.Encoding = "console"
	config.EncoderConfig.EncodeLevel = capitalLevelEncoder(colour)
	config.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format(timeFormat))
	}
	config.Level = logLevel.atomicLevel

	log, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &ZapLogger{log.Sugar()}, nil
}

func NewZapLoggerWithCore(core zapcore.Core) *ZapLogger {
	return &ZapLogger{zap.New(core).Sugar()}
}

func (l *ZapLogger) IsTraceEnabled() bool {
	return l.Desugar().Core().Enabled(TRACE)
}

func (l *ZapLogger) Tracew(msg string, keysAndValues ...any) {
	if l.IsTraceEnabled() {
		// zap has no trace level, the entry is emitted one level below debug
		if ce := l.Desugar().Check(TRACE, msg); ce != nil {
			ce.Write(l.sweetenFields(keysAndValues)...)
		}
	}
}

func (l *ZapLogger) sweetenFields(keysAndValues []any) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}

func capitalLevelEncoder(colour bool) zapcore.LevelEncoder {
	return func(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		if level == TRACE {
			if colour {
				// magenta
				enc.AppendString("\x1b[35mTRACE\x1b[0m")
			} else {
				enc.AppendString("TRACE")
			}
			return
		}
		if colour {
			zapcore.CapitalColorLevelEncoder(level, enc)
		} else {
			zapcore.CapitalLevelEncoder(level, enc)
		}
	}
}

// HTTPLogSettings reports (GET) or replaces (PUT ?level=) the level of a running logger.
func HTTPLogSettings(w http.ResponseWriter, r *http.Request, logLevel *LogLevel) {
	switch r.Method {
	case http.MethodGet:
		fmt.Fprintln(w, logLevel.String())
	case http.MethodPut:
		levelStr := r.URL.Query().Get("level")
		if levelStr == "" {
			http.Error(w, "missing level query parameter", http.StatusBadRequest)
			return
		}

		if err := logLevel.Set(levelStr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fmt.Fprintf(w, "Replaced log level with '%s' successfully\n", levelStr)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
