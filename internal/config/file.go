package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	fileMu     sync.RWMutex
	fileValues map[string]string
)

// LoadFile overlays settings from a YAML file of KEY: value pairs using the same names as the
// environment variables. Values of the form "env:NAME" are read from that environment variable.
// Real environment variables always win over the file.
func LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("[config LoadFile] read %s: %w", path, err)
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("[config LoadFile] parse %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		resolved, err := ResolveSecret(v)
		if err != nil {
			return fmt.Errorf("[config LoadFile] %s: %w", k, err)
		}
		values[strings.ToUpper(strings.TrimSpace(k))] = resolved
	}

	fileMu.Lock()
	fileValues = values
	fileMu.Unlock()
	return nil
}

// ResolveSecret turns "env:XXX" into the value of XXX. Anything else is returned as is.
func ResolveSecret(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "env:") {
		return ref, nil
	}
	key := strings.TrimPrefix(ref, "env:")
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("env %s is empty", key)
	}
	return v, nil
}

func resetFile() {
	fileMu.Lock()
	fileValues = nil
	fileMu.Unlock()
}

func fileValue(key string) (string, bool) {
	fileMu.RLock()
	defer fileMu.RUnlock()
	v, ok := fileValues[key]
	return v, ok
}
