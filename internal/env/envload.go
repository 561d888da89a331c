package env

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	loadOnce   sync.Once
	loadedPath string
	loadErr    error

	mu sync.Mutex
	// fileKeys holds the variables that came from an env file rather than the
	// process environment.
	fileKeys = map[string]struct{}{}
)

// Ensure loads the first .env file found from the current working directory up
// to the filesystem root. Variables already set in the process environment
// win over the file. Subsequent calls are no-ops.
func Ensure() error {
	// Keep unit tests hermetic: avoid picking up developer-local `.env` by default.
	// Opt-in with GOTEST_LOAD_DOTENV=1 when running `go test`.
	if runningUnderGoTest() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	loadOnce.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			loadErr = errors.Wrap(err, "resolve working directory")
			return
		}
		path, err := findDotEnv(wd)
		if err != nil {
			loadErr = err
			log.Debug().Err(err).Msg("adbcleanup: search .env failed")
			return
		}
		if path == "" {
			return
		}
		loadErr = load(path, false)
	})
	return loadErr
}

// LoadFile loads an explicit env file, e.g. from --env-file. Unlike Ensure it
// fails when the file is missing, and its values replace those taken from an
// auto-discovered .env. Variables set by the process environment still win.
func LoadFile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return errors.Wrapf(err, "env file %s", path)
	}
	return load(path, true)
}

// LoadedPath returns the resolved .env path if one was loaded, otherwise "".
func LoadedPath() string {
	return loadedPath
}

func load(path string, overrideFile bool) error {
	values, err := godotenv.Read(path)
	if err != nil {
		log.Warn().Err(err).Str("dotenv", path).Msg("adbcleanup: load .env failed")
		return errors.Wrapf(err, "load env file %s", path)
	}

	mu.Lock()
	defer mu.Unlock()
	applied := 0
	for key, val := range values {
		if _, set := os.LookupEnv(key); set {
			if _, fromFile := fileKeys[key]; !overrideFile || !fromFile {
				continue
			}
		}
		if err := os.Setenv(key, val); err != nil {
			return errors.Wrapf(err, "set %s from %s", key, path)
		}
		fileKeys[key] = struct{}{}
		applied++
	}
	loadedPath = path
	log.Debug().Str("dotenv", path).Int("applied", applied).Msg("adbcleanup: loaded .env")
	return nil
}

func runningUnderGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

func findDotEnv(dir string) (string, error) {
	for {
		candidate := filepath.Join(dir, ".env")
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !os.IsNotExist(err):
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
