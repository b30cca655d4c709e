package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/utils/logging"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input   string
		level   slog.Level
		invalid bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			level, err := logging.ParseLevel(tc.input)
			gt.Equal(t, level, tc.level)
			gt.Equal(t, errors.Is(err, logging.ErrInvalidLevel), tc.invalid)
		})
	}
}

func TestNewLevels(t *testing.T) {
	testCases := []struct {
		level       string
		expectDebug bool
		expectWarn  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"error", false, false},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)
			logger.Debug("debug message")
			logger.Warn("warn message")
			logger.Error("error message")

			output := buf.String()
			gt.Equal(t, bytes.Contains([]byte(output), []byte("debug message")), tc.expectDebug)
			gt.Equal(t, bytes.Contains([]byte(output), []byte("warn message")), tc.expectWarn)
			gt.S(t, output).Contains("error message")
		})
	}
}

func TestNewInvalidLevelWarns(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("loud", buf)
	gt.S(t, buf.String()).Contains("invalid log level")

	logger.Debug("hidden")
	gt.S(t, buf.String()).NotContains("hidden")
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)
	ctx := logging.With(context.Background(), logger)

	gt.Equal(t, logging.From(ctx), logger)
	logging.From(ctx).Info("context message")
	gt.S(t, buf.String()).Contains("context message")
}

func TestFromUsesDefault(t *testing.T) {
	original := logging.Default()
	t.Cleanup(func() { logging.SetDefault(original) })

	buf := &bytes.Buffer{}
	custom := logging.New("warn", buf)
	logging.SetDefault(custom)

	gt.Equal(t, logging.From(context.Background()), custom)
	logging.From(context.Background()).Warn("warning from default")
	gt.S(t, buf.String()).Contains("warning from default")
}

func TestComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := logging.With(context.Background(), logging.New("info", buf))
	ctx = logging.Component(ctx, "graph")

	logging.From(ctx).Info("loaded")
	gt.S(t, buf.String()).Contains("loaded")
	gt.S(t, buf.String()).Contains("graph")
}
