package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	fileTypeEnv  = "env"
	fileTypeJSON = "json"
	fileTypeYAML = "yaml"
)

// setInFile writes key=value into a config file of the given type,
// creating the file when it does not exist.
func setInFile(fileType, path, key, value string) error {
	switch fileType {
	case fileTypeEnv:
		return replaceInEnvFile(path, key, value)
	case fileTypeJSON:
		return replaceInJSONFile(path, key, value)
	case fileTypeYAML, "yml":
		return replaceInYAMLFile(path, key, value)
	default:
		return fmt.Errorf("unsupported file type %q (env, json, yaml)", fileType)
	}
}

func replaceInEnvFile(path, key, value string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read file: %w", err)
	}

	line := key + "=" + value
	if len(content) == 0 {
		return os.WriteFile(path, []byte(line+"\n"), 0o600)
	}

	lines := strings.Split(string(content), "\n")
	pattern := regexp.MustCompile(`^\s*(export\s+)?` + regexp.QuoteMeta(key) + `\s*=`)
	found := false
	for i, l := range lines {
		if pattern.MatchString(l) {
			lines[i] = line
			found = true
			break
		}
	}
	if !found {
		if lines[len(lines)-1] == "" {
			lines[len(lines)-1] = line
			lines = append(lines, "")
		} else {
			lines = append(lines, line)
		}
	}
	return os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600)
}

func replaceInJSONFile(path, key, value string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read file: %w", err)
	}

	data := make(map[string]any)
	if len(strings.TrimSpace(string(content))) > 0 {
		if err := json.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse JSON: %w", err)
		}
	}
	data[key] = value

	updated, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return os.WriteFile(path, append(updated, '\n'), 0o600)
}

func replaceInYAMLFile(path, key, value string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read file: %w", err)
	}

	data := make(map[string]any)
	if len(content) > 0 {
		if err := yaml.Unmarshal(content, &data); err != nil {
			return fmt.Errorf("failed to parse YAML: %w", err)
		}
		if data == nil {
			data = make(map[string]any)
		}
	}
	data[key] = value

	updated, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return os.WriteFile(path, updated, 0o600)
}

func detectFileType(path string) (string, error) {
	base := strings.ToLower(filepath.Base(path))
	switch filepath.Ext(base) {
	case ".env":
		return fileTypeEnv, nil
	case ".json":
		return fileTypeJSON, nil
	case ".yaml", ".yml":
		return fileTypeYAML, nil
	}
	if base == "env" || strings.HasPrefix(base, ".env.") || strings.Contains(base, ".env.") {
		return fileTypeEnv, nil
	}
	return "", fmt.Errorf("unable to detect file type for %s; pass --type", path)
}

// createBackup copies path to path.bak. A missing file needs no backup.
func createBackup(path string) (string, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read source file: %w", err)
	}
	backup := path + ".bak"
	if err := os.WriteFile(backup, content, 0o600); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return backup, nil
}
