package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644))
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: test
jwt:
  secret: short
storage:
  type: minio
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.ExpireTime)
	assert.Equal(t, 10, cfg.Quiz.FinalQuestionCount)
	assert.Equal(t, "Final Quiz", cfg.Quiz.FinalTitle)
	assert.Equal(t, 70, cfg.Quiz.FinalPassingScore)
	assert.Equal(t, 300*time.Second, cfg.Quiz.QuestionCacheTTL())
	assert.Equal(t, 6000, cfg.RateLimit.MaxRequests)
	assert.Equal(t, "logs/olp.log", cfg.Log.File)
	assert.Equal(t, 100, cfg.Log.MaxSizeMB)
}

func TestLoadConfigQuizOverrides(t *testing.T) {
	dir := writeConfig(t, `
server:
  mode: test
storage:
  type: minio
quiz:
  final_question_count: 25
  final_title: Course Exam
  final_passing_score: 80
cors:
  allowed_origins:
    - https://learn.example.com
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Quiz.FinalQuestionCount)
	assert.Equal(t, "Course Exam", cfg.Quiz.FinalTitle)
	assert.Equal(t, 80, cfg.Quiz.FinalPassingScore)
	assert.Equal(t, []string{"https://learn.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Mode: "release"},
			JWT:    JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Quiz:   QuizConfig{FinalQuestionCount: 10, FinalPassingScore: 70},
		}
	}
	require.NoError(t, valid().Validate())

	short := valid()
	short.JWT.Secret = "too-short"
	assert.Error(t, short.Validate())

	noQuestions := valid()
	noQuestions.Quiz.FinalQuestionCount = 0
	assert.Error(t, noQuestions.Validate())

	badScore := valid()
	badScore.Quiz.FinalPassingScore = 101
	assert.Error(t, badScore.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
