package utils_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/NethermindEth/seth/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var levelStrings = map[*utils.LogLevel]string{
	utils.NewLogLevel(utils.TRACE): "trace",
	utils.NewLogLevel(utils.DEBUG): "debug",
	utils.NewLogLevel(utils.INFO):  "info",
	utils.NewLogLevel(utils.WARN):  "warn",
	utils.NewLogLevel(utils.ERROR): "error",
}

func TestLogLevelString(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			assert.Equal(t, str, level.String())
		})
	}
}

func TestLogLevelSet(t *testing.T) {
	for level, str := range levelStrings {
		for _, input := range []string{str, strings.ToUpper(str)} {
			t.Run("level "+input, func(t *testing.T) {
				l := utils.NewLogLevel(utils.ERROR)
				require.NoError(t, l.Set(input))
				assert.Equal(t, level.Level(), l.Level())
			})
		}
	}

	t.Run("zero value", func(t *testing.T) {
		l := new(utils.LogLevel)
		require.NoError(t, l.Set("warn"))
		assert.Equal(t, utils.WARN, l.Level())
	})

	t.Run("unknown log level", func(t *testing.T) {
		l := new(utils.LogLevel)
		require.ErrorIs(t, l.Set("blah"), utils.ErrUnknownLogLevel)
	})
}

func TestLogLevelUnmarshalText(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("level "+str, func(t *testing.T) {
			l := new(utils.LogLevel)
			require.NoError(t, l.UnmarshalText([]byte(str)))
			assert.Equal(t, level.Level(), l.Level())
		})
	}

	t.Run("unknown log level", func(t *testing.T) {
		l := new(utils.LogLevel)
		require.ErrorIs(t, l.UnmarshalText([]byte("blah")), utils.ErrUnknownLogLevel)
	})
}

func TestLogLevelMarshal(t *testing.T) {
	for level, str := range levelStrings {
		t.Run("json "+str, func(t *testing.T) {
			lb, err := json.Marshal(level)
			require.NoError(t, err)
			assert.Equal(t, `"`+str+`"`, string(lb))
		})
		t.Run("yaml "+str, func(t *testing.T) {
			data, err := yaml.Marshal(*level)
			require.NoError(t, err)
			assert.Equal(t, str+"\n", string(data))
		})
	}
}

func TestLogLevelType(t *testing.T) {
	assert.Equal(t, "LogLevel", new(utils.LogLevel).Type())
}

func TestNewZapLogger(t *testing.T) {
	for level, str := range levelStrings {
		for _, colour := range []bool{true, false} {
			t.Run("level: "+str, func(t *testing.T) {
				_, err := utils.NewZapLogger(level, colour)
				assert.NoError(t, err)
			})
		}
	}
}

func TestTracew(t *testing.T) {
	newBufferedLogger := func(level zapcore.Level) (*utils.ZapLogger, *bytes.Buffer) {
		var buf bytes.Buffer
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
			zapcore.AddSync(&buf),
			level,
		)
		return utils.NewZapLoggerWithCore(core), &buf
	}

	t.Run("enabled", func(t *testing.T) {
		logger, buf := newBufferedLogger(utils.TRACE)
		require.True(t, logger.IsTraceEnabled())

		logger.Tracew("serving request", "method", "eth_getBalance")
		assert.Contains(t, buf.String(), "serving request")
		assert.Contains(t, buf.String(), "eth_getBalance")
	})

	t.Run("disabled", func(t *testing.T) {
		logger, buf := newBufferedLogger(utils.INFO)
		require.False(t, logger.IsTraceEnabled())

		logger.Tracew("serving request")
		assert.Empty(t, buf.String())
	})
}

func TestHTTPLogSettings(t *testing.T) {
	logLevel := utils.NewLogLevel(utils.INFO)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		utils.HTTPLogSettings(w, r, logLevel)
	})

	serve := func(t *testing.T, method, target string) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(method, target, http.NoBody)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	t.Run("GET current log level", func(t *testing.T) {
		rr := serve(t, http.MethodGet, "/log/level")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "info\n", rr.Body.String())
	})

	t.Run("PUT update log level", func(t *testing.T) {
		rr := serve(t, http.MethodPut, "/log/level?level=debug")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Replaced log level with 'debug' successfully\n", rr.Body.String())
		assert.Equal(t, utils.DEBUG, logLevel.Level())
	})

	t.Run("PUT without level", func(t *testing.T) {
		rr := serve(t, http.MethodPut, "/log/level")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "missing level query parameter\n", rr.Body.String())
	})

	t.Run("PUT invalid level", func(t *testing.T) {
		rr := serve(t, http.MethodPut, "/log/level?level=invalid")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, utils.ErrUnknownLogLevel.Error()+"\n", rr.Body.String())
	})

	t.Run("method not allowed", func(t *testing.T) {
		rr := serve(t, http.MethodPost, "/log/level")
		assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	})
}
