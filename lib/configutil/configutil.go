package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"baikalctl/lib/osutil"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// LocalName returns the name of the local override file of a config file,
// "baikalctl.json5" becomes "baikalctl.local.json5".
func LocalName(name string) string {
	prefix, ext := splitExt(filepath.Base(name))
	return filepath.Join(filepath.Dir(name), fmt.Sprintf("%s.local.%s", prefix, ext))
}

// ReadInto reads a configuration file on top of the values already in out,
// keys missing from the file keep their current value. `name` should come
// with a file extension. The following files are read, a higher number takes
// priority:
//  1. <name>.<ext>
//  2. <name>.local.<ext>
//
// The local file is merged with mergo, so a local value equal to its type's
// zero value does not override. os.ErrNotExist is returned when neither file
// exists, out is untouched in that case.
func ReadInto[T any](name string, out *T) error {
	allNotFound := true

	defaultFile, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if len(defaultFile) > 0 {
		err = json5.Unmarshal(defaultFile, out)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		allNotFound = false
	}

	localFilepath := LocalName(name)
	localFile, err := os.ReadFile(localFilepath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if len(localFile) > 0 {
		var override T
		err = json5.Unmarshal(localFile, &override)
		if err != nil {
			return fmt.Errorf("%s: %w", localFilepath, err)
		}
		err = mergo.Merge(out, override, mergo.WithOverride)
		if err != nil {
			return err
		}
		slog.Debug("merging config with local overrides", "local", localFilepath)
		allNotFound = false
	}

	if allNotFound {
		return os.ErrNotExist
	}
	return nil
}

// ReadRecursively is ReadInto but it goes up the filesystem from the working
// directory until the root to find a configuration file matching the name.
// It returns the path of the file that was read.
func ReadRecursively[T any](name string, out *T) (string, error) {
	root, err := filepath.Abs("/")
	if err != nil {
		return "", err
	}
	current, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(current, name)
		err := ReadInto(path, out)
		if err == nil {
			return path, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		if current == root {
			return "", os.ErrNotExist
		}
		current = filepath.Dir(current)
	}
}

// ReadSecret resolves file indirection of a secret value: "@path" reads the
// secret from path relative to the working directory, "@~/path" relative to
// the home directory. Surrounding whitespace of file contents is dropped.
// Any other value is returned as is.
func ReadSecret(value string) (string, error) {
	path, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	path, err := osutil.ExpandHome(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(string(content)), nil
}
