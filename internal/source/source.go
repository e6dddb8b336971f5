// Package source locates and reads firmware files.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtension is the firmware file extension searched for.
const DefaultExtension = ".dfu"

// InputError indicates that no firmware file could be found.
type InputError struct {
	Dir string
	Ext string
	Err error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no %s file found in %s: %v", e.Ext, e.Dir, e.Err)
	}
	return fmt.Sprintf("no %s file found in %s", e.Ext, e.Dir)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// FindFile returns the path of the first regular file in dir whose name
// ends with ext, in lexical order. The match is case-insensitive.
func FindFile(dir, ext string) (string, error) {
	if ext == "" {
		ext = DefaultExtension
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", &InputError{Dir: dir, Ext: ext, Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if strings.HasSuffix(strings.ToLower(e.Name()), strings.ToLower(ext)) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return "", &InputError{Dir: dir, Ext: ext}
	}

	sort.Strings(names)
	return filepath.Join(dir, names[0]), nil
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Resolve returns path itself when it names a file, or the first matching
// file when it names a directory.
func Resolve(path, ext string) (string, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(path)
	if err != nil {
		return "", &InputError{Dir: path, Ext: ext, Err: err}
	}
	if fi.IsDir() {
		return FindFile(path, ext)
	}
	return path, nil
}
