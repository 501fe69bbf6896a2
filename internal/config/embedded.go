package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tildaslashalef/ghmind/internal/loggy"
)

//go:embed env.sample
var envSample []byte

// SampleEnv returns the commented sample .env shipped with the binary
func SampleEnv() []byte {
	return append([]byte(nil), envSample...)
}

// WriteSampleEnv writes the sample .env to targetPath. An existing file is
// left alone unless backupExisting is set, in which case it is copied to
// <target>.<date>.bak first.
func WriteSampleEnv(targetPath string, backupExisting bool) (bool, error) {
	if existing, err := os.ReadFile(targetPath); err == nil {
		if !backupExisting {
			return false, nil
		}

		backupPath := fmt.Sprintf("%s.%s.bak", targetPath, time.Now().Format("2006-01-02"))
		if err := os.WriteFile(backupPath, existing, 0644); err != nil {
			return false, fmt.Errorf("failed to write backup file: %w", err)
		}
		loggy.Info("Created backup of existing file", "original", targetPath, "backup", backupPath)
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to read existing file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
		return false, err
	}

	if err := os.WriteFile(targetPath, envSample, 0644); err != nil {
		return false, err
	}

	loggy.Info("Wrote sample env file", "target", targetPath)
	return true, nil
}
