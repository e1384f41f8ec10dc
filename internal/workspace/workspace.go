package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"litindex/internal/config"
)

const BaseDirName = "LitIndex"

// Paths locates everything a workspace holds.
type Paths struct {
	Root       string
	Configs    string
	Data       string
	Reports    string
	ConfigFile string
	Database   string
}

func PathsAt(base string) Paths {
	return Paths{
		Root:       base,
		Configs:    filepath.Join(base, "configs"),
		Data:       filepath.Join(base, "data"),
		Reports:    filepath.Join(base, "reports"),
		ConfigFile: filepath.Join(base, "configs", "litdup.yaml"),
		Database:   filepath.Join(base, "data", "litindex.db"),
	}
}

func EnsureDefault() (Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return Paths{}, fmt.Errorf("resolve home: %w", err)
	}
	return EnsureAt(filepath.Join(home, BaseDirName))
}

// EnsureAt creates the workspace directories and writes a default config
// pointing at the workspace database. An existing config is left alone.
func EnsureAt(base string) (Paths, error) {
	p := PathsAt(base)
	for _, dir := range []string{p.Configs, p.Data, p.Reports} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(p.ConfigFile); os.IsNotExist(err) {
		defaults := config.Default()
		defaults.Database.Path = p.Database
		if err := config.Save(p.ConfigFile, defaults); err != nil {
			return Paths{}, err
		}
	}
	return p, nil
}
