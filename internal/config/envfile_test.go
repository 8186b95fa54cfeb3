package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterializeEnvFile(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	t.Run("CopiesTemplateWhenEnvFileAbsent", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		template := filepath.Join(dir, ".env.example")
		require.NoError(t, os.WriteFile(template, []byte("PORT=3000\n"), 0644))

		result, err := MaterializeEnvFile(envFile, template, logger)

		require.NoError(t, err)
		assert.Equal(t, EnvCreated, result)

		content, err := os.ReadFile(envFile)
		require.NoError(t, err)
		assert.Equal(t, "PORT=3000\n", string(content))
	})

	t.Run("SecondRunKeepsFileByteForByte", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		template := filepath.Join(dir, ".env.example")
		require.NoError(t, os.WriteFile(template, []byte("PORT=3000\n"), 0644))

		_, err := MaterializeEnvFile(envFile, template, logger)
		require.NoError(t, err)
		first, err := os.ReadFile(envFile)
		require.NoError(t, err)

		result, err := MaterializeEnvFile(envFile, template, logger)
		require.NoError(t, err)
		assert.Equal(t, EnvKept, result)

		second, err := os.ReadFile(envFile)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("NeverOverwritesOperatorEdits", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		template := filepath.Join(dir, ".env.example")
		require.NoError(t, os.WriteFile(template, []byte("PORT=3000\n"), 0644))
		require.NoError(t, os.WriteFile(envFile, []byte("PORT=8080\nDB_PASSWORD=secret\n"), 0644))

		result, err := MaterializeEnvFile(envFile, template, logger)

		require.NoError(t, err)
		assert.Equal(t, EnvKept, result)

		content, err := os.ReadFile(envFile)
		require.NoError(t, err)
		assert.Equal(t, "PORT=8080\nDB_PASSWORD=secret\n", string(content))
	})

	t.Run("FailsWhenTemplateMissing", func(t *testing.T) {
		dir := t.TempDir()
		envFile := filepath.Join(dir, ".env")
		template := filepath.Join(dir, ".env.example")

		_, err := MaterializeEnvFile(envFile, template, logger)

		require.Error(t, err)
		assert.NoFileExists(t, envFile)
	})
}
