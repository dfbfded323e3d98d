package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override file configuration.
const (
	EnvOwner         = "FORMCRAFT_OWNER"
	EnvBind          = "FORMCRAFT_BIND"
	EnvPort          = "FORMCRAFT_PORT"
	EnvPublicBaseURL = "FORMCRAFT_PUBLIC_BASE_URL"
)

// Config holds application configuration.
type Config struct {
	// Owner is the identity used by the CLI and MCP server for owner-scoped operations.
	Owner string `json:"owner,omitempty"`

	// Bind and Port control the web server listen address.
	Bind string `json:"bind,omitempty"`
	Port int    `json:"port,omitempty"`

	// PublicBaseURL prefixes share links handed out for published forms.
	PublicBaseURL string `json:"public_base_url,omitempty"`

	// IdentityHeader names the request header carrying the authenticated user
	// (set by a fronting auth proxy).
	IdentityHeader string `json:"identity_header,omitempty"`

	// WebDefaultOwner is used when IdentityHeader is absent. Empty means API
	// calls without the header fail with UNAUTHENTICATED.
	WebDefaultOwner string `json:"web_default_owner,omitempty"`

	// MaxElements caps the number of elements in one form design.
	MaxElements int `json:"max_elements"`

	// MaxContentBytes caps the encoded size of a form design.
	MaxContentBytes int `json:"max_content_bytes"`

	// MaxSubmissionBytes caps the encoded size of one submission.
	MaxSubmissionBytes int `json:"max_submission_bytes"`

	// AllowedPaths is an allowlist of directories for import/export operations.
	// Paths outside ~/.formcraft/exports require either being in this list or AllowUnsafePaths=true.
	// Paths should be absolute (relative paths are ignored).
	AllowedPaths []string `json:"allowed_paths,omitempty"`

	// AllowUnsafePaths disables directory restrictions for import/export.
	// Symlink and extension checks still apply.
	AllowUnsafePaths bool `json:"allow_unsafe_paths,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`

	// DisabledTypes is a list of MCP tool groups to disable entirely.
	// Known types: "form", "submission", "field".
	DisabledTypes []string `json:"disabled_types,omitempty"`

	// DisabledFieldTypes hides field types from the palette and rejects new
	// palette drops of them. Stored designs using them still load.
	DisabledFieldTypes []string `json:"disabled_field_types,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Bind:               "127.0.0.1",
		Port:               8430,
		IdentityHeader:     "X-Formcraft-User",
		MaxElements:        200,
		MaxContentBytes:    256 * 1024,
		MaxSubmissionBytes: 64 * 1024,
	}
}

// Load loads configuration from baseDir/config.json, then applies baseDir/.env
// and process environment overrides.
// Returns default config if the file doesn't exist.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithRepo loads configuration from both global (~/.formcraft) and repo (.formcraft) directories.
// Repo config is found by walking upward from startDir to find the nearest .formcraft/config.json.
// Repo config takes precedence for scalar values; arrays are merged (deduplicated).
// Environment overrides are applied last.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.json"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), global), repo)
	if err := ApplyEnv(cfg, filepath.Join(globalDir, ".env")); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindRepoConfig walks upward from startDir to find the nearest .formcraft/config.json.
// Returns the path if found, or empty string if not found.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".formcraft", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// ApplyEnv overlays FORMCRAFT_* values onto cfg. Values from envFile are used
// only where the process environment does not set the variable.
// A missing envFile is not an error.
func ApplyEnv(cfg *Config, envFile string) error {
	fileVars := map[string]string{}
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			vars, err := godotenv.Read(envFile)
			if err != nil {
				return err
			}
			fileVars = vars
		}
	}

	lookup := func(key string) (string, bool) {
		if v := os.Getenv(key); v != "" {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	if v, ok := lookup(EnvOwner); ok && strings.TrimSpace(v) != "" {
		cfg.Owner = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBind); ok && strings.TrimSpace(v) != "" {
		cfg.Bind = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || port <= 0 || port > 65535 {
			return errors.New("invalid " + EnvPort + ": " + v)
		}
		cfg.Port = port
	}
	if v, ok := lookup(EnvPublicBaseURL); ok && strings.TrimSpace(v) != "" {
		cfg.PublicBaseURL = strings.TrimRight(strings.TrimSpace(v), "/")
	}
	return nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{
		Owner:              overlayString(base.Owner, overlay.Owner),
		Bind:               overlayString(base.Bind, overlay.Bind),
		Port:               overlayInt(base.Port, overlay.Port),
		PublicBaseURL:      overlayString(base.PublicBaseURL, overlay.PublicBaseURL),
		IdentityHeader:     overlayString(base.IdentityHeader, overlay.IdentityHeader),
		WebDefaultOwner:    overlayString(base.WebDefaultOwner, overlay.WebDefaultOwner),
		MaxElements:        overlayInt(base.MaxElements, overlay.MaxElements),
		MaxContentBytes:    overlayInt(base.MaxContentBytes, overlay.MaxContentBytes),
		MaxSubmissionBytes: overlayInt(base.MaxSubmissionBytes, overlay.MaxSubmissionBytes),
		DBMaxOpenConns:     overlayInt(base.DBMaxOpenConns, overlay.DBMaxOpenConns),
		DBMaxIdleConns:     overlayInt(base.DBMaxIdleConns, overlay.DBMaxIdleConns),
	}

	// Booleans: overlay wins if true, else base
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)
	result.DisabledFieldTypes = mergeStringSlice(base.DisabledFieldTypes, overlay.DisabledFieldTypes)

	return result
}

func overlayString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func overlayInt(base, overlay int) int {
	if overlay != 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, list := range [][]string{a, b} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s != "" && !seen[s] {
				seen[s] = true
				result = append(result, s)
			}
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// Addr returns the host:port the web server listens on.
func (c *Config) Addr() string {
	return c.Bind + ":" + strconv.Itoa(c.Port)
}
