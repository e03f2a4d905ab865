package appdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const dirName = ".blockmode-go"

var (
	appDirCache string
	appDirOnce  sync.Once
	appDirErr   error
)

// AppDir returns ~/.blockmode-go, creating it on first use. BLOCKMODE_HOME
// overrides the location.
func AppDir() (string, error) {
	appDirOnce.Do(func() {
		dir := os.Getenv("BLOCKMODE_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				appDirErr = fmt.Errorf("appdir: %w", err)
				return
			}
			dir = filepath.Join(home, dirName)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			appDirErr = fmt.Errorf("appdir: %w", err)
			return
		}
		appDirCache = dir
	})
	return appDirCache, appDirErr
}

// Path joins name onto the application directory. Absolute names are
// returned unchanged.
func Path(name string) (string, error) {
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := AppDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
