package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew_LevelParsing(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, New("debug", "development").GetLevel())
	assert.Equal(t, logrus.WarnLevel, New("WARN", "development").GetLevel())
	assert.Equal(t, logrus.InfoLevel, New("bogus", "development").GetLevel())
}

func TestNew_ProductionUsesJSON(t *testing.T) {
	logger := New("info", "production")
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	logger = New("info", "development")
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
}
