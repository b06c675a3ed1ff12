package conf

import (
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/diana-archive/gazetteer/internal/errors"
)

const appDirName = "gazetteer"

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	homeDir, err := os.UserHomeDir()
	if err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", appDirName))
		} else {
			paths = append(paths, filepath.Join(homeDir, ".config", appDirName))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, filepath.Join("/etc", appDirName))
	}

	return paths
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
