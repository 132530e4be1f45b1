package utils

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/charmbracelet/log"
)

const appDirName = "educate"

// PathResolver resolves config and data locations for the educate binary.
type PathResolver struct {
	homeDir   string
	configDir string
	dataDir   string
}

// NewPathResolver determines the platform config and data directories.
func NewPathResolver() *PathResolver {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Warnf("Could not determine home directory: %v", err)
		homeDir = os.TempDir()
	}

	pr := &PathResolver{
		homeDir:   homeDir,
		configDir: getConfigDir(homeDir),
		dataDir:   getDataDir(homeDir),
	}
	log.Debugf("PathResolver initialized: configDir=%s, dataDir=%s", pr.configDir, pr.dataDir)
	return pr
}

// getConfigDir returns the appropriate config directory for the platform
func getConfigDir(homeDir string) string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir, ".config", appDirName)
	case "linux":
		if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
			return filepath.Join(configHome, appDirName)
		}
		return filepath.Join(homeDir, ".config", appDirName)
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, appDirName)
		}
		return filepath.Join(homeDir, "AppData", "Roaming", appDirName)
	default:
		return filepath.Join(homeDir, "."+appDirName)
	}
}

// getDataDir returns where durable session storage lives.
func getDataDir(homeDir string) string {
	if runtime.GOOS == "linux" {
		if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
			return filepath.Join(dataHome, appDirName)
		}
		return filepath.Join(homeDir, ".local", "share", appDirName)
	}
	return filepath.Join(getConfigDir(homeDir), "data")
}

// GetConfigPath returns the full path for a config file
// It ensures the config directory exists and handles read-only filesystem issues
func (pr *PathResolver) GetConfigPath(filename string) string {
	configPath := filepath.Join(pr.configDir, filename)
	if ensureWritableDir(pr.configDir) {
		return configPath
	}

	fallbackDirs := []string{
		filepath.Join(pr.homeDir, "."+appDirName),
		filepath.Join(os.TempDir(), appDirName),
	}
	for _, dir := range fallbackDirs {
		if ensureWritableDir(dir) {
			path := filepath.Join(dir, filename)
			log.Warnf("Using fallback config location: %s", path)
			return path
		}
	}

	tempPath := filepath.Join(os.TempDir(), filename)
	log.Warnf("Using temporary config file: %s", tempPath)
	return tempPath
}

// GetDataDir resolves a storage directory. Absolute paths are used as-is,
// relative ones are placed under the platform data dir.
func (pr *PathResolver) GetDataDir(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(pr.dataDir, path)
}

// GetConfigDir returns the config directory
func (pr *PathResolver) GetConfigDir() string {
	return pr.configDir
}

// ensureWritableDir creates the directory if it doesn't exist and tests writability
func ensureWritableDir(dir string) bool {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Debugf("Cannot create directory %s: %v", dir, err)
		return false
	}
	return testWriteAccess(dir)
}
