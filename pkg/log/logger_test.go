package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/YuminosukeSato/perceptron/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestZerologLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug).With(ModelNameKey, "Perceptron")

	logger.Info("Training completed",
		OperationKey, OperationFit,
		SamplesKey, 4,
		ConvergedKey, true,
	)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "Training completed", entry["message"])
	assert.Equal(t, "Perceptron", entry[ModelNameKey])
	assert.Equal(t, OperationFit, entry[OperationKey])
	assert.Equal(t, 4.0, entry[SamplesKey])
	assert.Equal(t, true, entry[ConvergedKey])
}

func TestZerologLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelWarn)
	ctx := context.Background()

	assert.False(t, logger.Enabled(ctx, LevelDebug))
	assert.False(t, logger.Enabled(ctx, LevelInfo))
	assert.True(t, logger.Enabled(ctx, LevelWarn))
	assert.True(t, logger.Enabled(ctx, LevelError))

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["message"])
}

func TestZerologLoggerErrorAttachesDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	err := perrors.NewDimensionError("Perceptron.Predict", 784, 10, 1)
	logger.Error("Prediction failed", err, OperationKey, OperationPredict)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	assert.Contains(t, entry["error"], "dimension mismatch")
	assert.Equal(t, OperationPredict, entry[OperationKey])

	detail, ok := entry["error.detail"].(map[string]interface{})
	require.True(t, ok, "expected structured error detail, got %v", entry["error.detail"])
	assert.Equal(t, "DimensionError", detail["type"])
	assert.Equal(t, 784.0, detail["expected"])
	assert.NotEmpty(t, entry[StacktraceKey])
}

func TestZerologLoggerOddFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)
	logger.Info("odd", "dangling")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "!MISSING", entries[0]["dangling"])
}

func TestSetupLoggerRoutesWarnings(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)
	defer perrors.SetZerologWarnFunc(nil)

	var buf bytes.Buffer
	require.NoError(t, SetupLoggerWithWriter(&buf, "warn"))

	var captured []error
	prevHandler := perrors.SetWarningHandler(func(w error) { captured = append(captured, w) })
	defer perrors.SetWarningHandler(prevHandler)

	perrors.Warn(perrors.NewConvergenceWarning("Perceptron", 5, ""))
	require.Len(t, captured, 1)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "ConvergenceWarning", entries[0]["type"])
	assert.Equal(t, 5.0, entries[0]["iterations"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: LevelDebug},
		{in: "INFO", want: LevelInfo},
		{in: "", want: LevelInfo},
		{in: "warning", want: LevelWarn},
		{in: "error", want: LevelError},
		{in: "verbose", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				var valErr *perrors.ValidationError
				assert.True(t, perrors.As(err, &valErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(3).String())
}

func TestTestLogger(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)
	contextLogger := testLogger.With(ModelNameKey, "OneVsRestClassifier", ClassKey, 7)

	contextLogger.Debug("hidden")
	contextLogger.Info("class fitted", EpochKey, 3)
	contextLogger.Error("class failed", fmt.Errorf("boom"))

	assert.False(t, testLogger.ContainsMessage("hidden"))
	assert.True(t, testLogger.ContainsMessage("class fitted"))
	assert.True(t, testLogger.ContainsField(ClassKey, 7.0))
	assert.True(t, testLogger.ContainsField(EpochKey, 3.0))
	assert.True(t, testLogger.ContainsField(ErrorKey, "boom"))

	testLogger.Clear()
	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTestLoggerConcurrent(t *testing.T) {
	testLogger, _ := NewTestLogger(LevelInfo)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := testLogger.With(ClassKey, id)
			for j := 0; j < 10; j++ {
				l.Info("epoch", EpochKey, j)
			}
		}(i)
	}
	wg.Wait()

	entries, err := testLogger.GetLogEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 40)
}
