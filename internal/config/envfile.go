package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// MaterializeResult represents the outcome of one materialization attempt
type MaterializeResult string

const (
	// EnvCreated indicates the env file was copied from the template
	EnvCreated MaterializeResult = "created"
	// EnvKept indicates the env file already existed and was left untouched
	EnvKept MaterializeResult = "kept"
)

// MaterializeEnvFile ensures the local env file exists. An existing file is
// a sentinel meaning "already configured" and is never rewritten; otherwise
// the template content is copied verbatim.
func MaterializeEnvFile(envFile, template string, logger *logrus.Logger) (MaterializeResult, error) {
	if _, err := os.Stat(envFile); err == nil {
		logger.WithField("path", envFile).Debug("Env file already present, keeping as-is")
		return EnvKept, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat env file %s: %w", envFile, err)
	}

	content, err := os.ReadFile(template)
	if err != nil {
		return "", fmt.Errorf("failed to read env template %s: %w", template, err)
	}

	if err := os.WriteFile(envFile, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write env file %s: %w", envFile, err)
	}

	logger.WithFields(logrus.Fields{
		"path":     envFile,
		"template": template,
	}).Warn("Created env file from template, review it before relying on the stack")

	return EnvCreated, nil
}
