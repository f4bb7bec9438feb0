package logger_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/logger"
)

func TestNew_FileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.log")
	log, err := logger.New(logger.Options{Level: "DEBUG", File: path})
	require.NoError(t, err)

	log.Debug("attempt recorded", zap.String("attempt_id", "a-1"))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"attempt recorded"`)
	assert.Contains(t, string(data), `"attempt_id":"a-1"`)
}

func TestNew_BadLevel(t *testing.T) {
	_, err := logger.New(logger.Options{Level: "loud"})
	assert.Error(t, err)
}
