package am

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/teranos/attrgen/counter"
	"github.com/teranos/attrgen/errors"
	"github.com/teranos/attrgen/logger"
)

// createBackup creates rotating backups (.back1, .back2, .back3) before modifying config
func createBackup(configPath string) error {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil
	}

	back3 := configPath + ".back3"
	back2 := configPath + ".back2"
	back1 := configPath + ".back1"

	if err := os.Remove(back3); err != nil && !os.IsNotExist(err) {
		logger.Warnw("Failed to delete old config backup", logger.FieldPath, back3, logger.FieldError, err)
	}

	if _, err := os.Stat(back2); err == nil {
		if err := os.Rename(back2, back3); err != nil {
			return errors.Wrap(err, "failed to rotate .back2 to .back3")
		}
	}
	if _, err := os.Stat(back1); err == nil {
		if err := os.Rename(back1, back2); err != nil {
			return errors.Wrap(err, "failed to rotate .back1 to .back2")
		}
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}
	if err := os.WriteFile(back1, content, DefaultFilePermissions); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}

	return nil
}

// CountersPath returns the counters file that sits beside configPath:
// attrgen.toml keeps its counters in attrgen.counters.toml. The file holds
// only a [counters] table and is merged over the config it belongs to, so
// the hand-written config is never rewritten.
func CountersPath(configPath string) string {
	ext := filepath.Ext(configPath)
	if ext == "" {
		ext = ".toml"
	}
	return strings.TrimSuffix(configPath, filepath.Ext(configPath)) + ".counters" + ext
}

type countersFile struct {
	Counters map[string]int64 `toml:"counters"`
}

// ApplyCounterPatches records counter values for the config at path in its
// counters file (see CountersPath). Existing keys are matched
// case-insensitively so a patch for "uid" replaces a stored "UID". The
// previous counters file is rotated into a backup first.
func ApplyCounterPatches(path string, patches []counter.Patch) error {
	if len(patches) == 0 {
		return nil
	}
	target := CountersPath(path)

	var doc countersFile
	data, err := os.ReadFile(target)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return errors.Wrapf(err, "failed to parse %s", target)
		}
	case os.IsNotExist(err):
	default:
		return errors.Wrapf(err, "failed to read %s", target)
	}
	if doc.Counters == nil {
		doc.Counters = make(map[string]int64, len(patches))
	}

	for _, p := range patches {
		for existing := range doc.Counters {
			if existing != p.ID && strings.EqualFold(existing, p.ID) {
				delete(doc.Counters, existing)
			}
		}
		doc.Counters[p.ID] = p.Value
	}

	body, err := toml.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "failed to marshal counters")
	}
	out := append([]byte(countersHeader), body...)

	if err := createBackup(target); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	if w := GetGlobalWatcher(); w != nil {
		w.MarkOwnWrite(out)
	}

	if err := os.WriteFile(target, out, DefaultFilePermissions); err != nil {
		return errors.Wrapf(err, "failed to write %s", target)
	}

	logger.Infow("Counter patches written", logger.FieldPath, target, logger.FieldCount, len(patches))
	return nil
}

const countersHeader = "# Written by attrgen after each create. Values here override [counters]\n# in the config file next to it.\n\n"

// FileWriter persists counter patches for the config file at Path.
type FileWriter struct {
	Path string
}

// WritePatches applies patches to w.Path.
func (w FileWriter) WritePatches(_ context.Context, patches []counter.Patch) error {
	return ApplyCounterPatches(w.Path, patches)
}
