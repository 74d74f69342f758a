package configutil

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// LocalName returns the override file belonging to name, config.json5
// becomes config.local.json5.
func LocalName(name string) string {
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s.local%s", strings.TrimSuffix(name, ext), ext)
}

// readJSON5 decodes path into out, it reports false when the file doesn't
// exist or is empty.
func readJSON5(path string, out any) (bool, error) {
	contents, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return false, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// reads a configuration file, `name` should come with a file extension.
// this function will merge the following files, where higher number is more prioritized.
// 1. <name>.<ext>
// 2. <name>.local.<ext>
//
// fs.ErrNotExist is returned when neither exists.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found, err := readJSON5(name, &out)
	if err != nil {
		return out, err
	}

	localName := LocalName(name)
	var override T
	foundLocal, err := readJSON5(localName, &override)
	if err != nil {
		return out, err
	}
	if foundLocal {
		err = mergo.Merge(&out, override, mergo.WithOverride)
		if err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localName)
	}

	if !found && !foundLocal {
		return out, fs.ErrNotExist
	}
	return out, nil
}

// ReadConfig but it recursively goes up the filesystem from start until the
// root to find a configuration file matching the name.
func ReadRecursively[T any](start, name string) (T, string, error) {
	var defaultOut T

	current, err := filepath.Abs(start)
	if err != nil {
		return defaultOut, "", err
	}
	for {
		path := filepath.Join(current, name)
		config, err := ReadConfig[T](path)
		if err == nil {
			return config, path, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return defaultOut, "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return defaultOut, "", fs.ErrNotExist
		}
		current = parent
	}
}

// LoadEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		err := godotenv.Load(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Override describes an environment variable that replaces a config value
// when set.
type Override struct {
	Env    string
	Target *string
}

// ApplyEnv copies every set variable into its target and returns the names
// of the variables that were applied.
func ApplyEnv(overrides ...Override) []string {
	var applied []string
	for _, o := range overrides {
		value, ok := os.LookupEnv(o.Env)
		if !ok || value == "" {
			continue
		}
		*o.Target = value
		applied = append(applied, o.Env)
	}
	return applied
}
