package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// UserConfigName is looked up in the home directory.
	UserConfigName = ".rotate-backups.ini"
	// SystemConfigFile is the last location searched.
	SystemConfigFile = "/etc/rotate-backups.ini"
)

// RetentionKeys are the section keys that make up a rotation scheme.
var RetentionKeys = []string{"hourly", "daily", "weekly", "monthly", "yearly"}

const (
	keyInclude     = "include-list"
	keyExclude     = "exclude-list"
	keyExcludeFile = "exclude-file"
	keyDryRun      = "dry-run"
)

// Location is one section of the configuration file.
type Location struct {
	// Name is the section header as written.
	Name string
	// Path is Name with environment variables and a leading ~ expanded.
	Path        string
	Retention   map[string]string
	Include     []string
	Exclude     []string
	ExcludeFile string
	DryRun      bool
	// Unknown lists keys that were present but not understood.
	Unknown []string
}

// File is a parsed configuration file.
type File struct {
	Path      string
	Locations []Location
}

// DefaultSearchPaths returns the user and system configuration paths in the
// order they are tried.
func DefaultSearchPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, UserConfigName))
	}
	return append(paths, SystemConfigFile)
}

// Locate returns the configuration file to use. An explicit path must exist.
// Otherwise the default search paths are tried and "" is returned when none
// exists.
func Locate(explicit string) (string, error) {
	return LocateIn(explicit, DefaultSearchPaths())
}

// LocateIn is Locate with a custom search list.
func LocateIn(explicit string, candidates []string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		path := ExpandPath(explicit)
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("stat config file: %w", err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("config file %s is a directory", path)
		}
		return path, nil
	}

	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("stat config file: %w", err)
		}
		if !info.IsDir() {
			return path, nil
		}
	}
	return "", nil
}

// Load parses the INI file at path. Section and key names keep their case.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(path, data)
}

// Parse parses INI content. Values may reference environment variables as
// $VAR or ${VAR}.
func Parse(path string, data []byte) (*File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:    true,
		IgnoreInlineComment: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	file := &File{Path: path}
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		loc, err := parseSection(sec)
		if err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
		file.Locations = append(file.Locations, loc)
	}
	return file, nil
}

func parseSection(sec *ini.Section) (Location, error) {
	loc := Location{
		Name:      sec.Name(),
		Path:      ExpandPath(os.ExpandEnv(sec.Name())),
		Retention: make(map[string]string),
	}

	for _, key := range sec.Keys() {
		name := strings.ToLower(strings.TrimSpace(key.Name()))
		value := strings.TrimSpace(os.ExpandEnv(key.Value()))

		switch {
		case isRetentionKey(name):
			loc.Retention[name] = value
		case name == keyInclude:
			loc.Include = append(loc.Include, SplitList(value)...)
		case name == keyExclude:
			loc.Exclude = append(loc.Exclude, SplitList(value)...)
		case name == keyExcludeFile:
			loc.ExcludeFile = ExpandPath(value)
		case name == keyDryRun:
			b, err := key.Bool()
			if err != nil {
				return Location{}, fmt.Errorf("section [%s]: %s must be a boolean: %w", sec.Name(), keyDryRun, err)
			}
			loc.DryRun = b
		default:
			loc.Unknown = append(loc.Unknown, key.Name())
		}
	}
	sort.Strings(loc.Unknown)
	return loc, nil
}

// Lookup finds the section for location, comparing expanded and cleaned paths.
func (f *File) Lookup(location string) (Location, bool) {
	if f == nil {
		return Location{}, false
	}
	want := normalize(location)
	for _, loc := range f.Locations {
		if normalize(loc.Path) == want {
			return loc, true
		}
	}
	return Location{}, false
}

// SplitList splits a comma separated value, dropping empty items.
func SplitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ExpandPath replaces a leading ~ with the home directory.
func ExpandPath(path string) string {
	path = strings.TrimSpace(path)
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func isRetentionKey(name string) bool {
	for _, k := range RetentionKeys {
		if k == name {
			return true
		}
	}
	return false
}

func normalize(location string) string {
	location = ExpandPath(location)
	if strings.Contains(location, "://") {
		return strings.TrimSuffix(location, "/")
	}
	return filepath.Clean(location)
}
