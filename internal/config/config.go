package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/Rorical/RoriLens/internal/classifier"
	"github.com/Rorical/RoriLens/internal/models"
)

const (
	DefaultBackend = "openai"
	DefaultModel   = "gpt-4o-mini"
	DefaultTimeout = 60
)

// Profile is one named classifier setup
type Profile struct {
	Backend        string `json:"backend"`
	InputMode      string `json:"input_mode,omitempty"`
	TopK           int    `json:"top_k,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`

	// onnx backend
	ModelPath    string `json:"model_path,omitempty"`
	MetadataPath string `json:"metadata_path,omitempty"`
	LabelsPath   string `json:"labels_path,omitempty"`
	LibraryPath  string `json:"library_path,omitempty"`

	// openai backend
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

type Config struct {
	Profiles       map[string]Profile `json:"profiles"`
	ActiveProfile  string             `json:"active_profile"`
	currentProfile *Profile
}

// LoadConfig reads the profile file, creating it with defaults on first
// run. A .env file in the working directory is loaded first; it never
// overrides variables that are already set.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	configPath, err := Path()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}

	// Ensure config directory exists
	if err := ensureConfigDir(configPath); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	// Load existing config or create default
	config, err := loadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if name := os.Getenv("RORILENS_PROFILE"); name != "" {
		if _, exists := config.Profiles[name]; !exists {
			return nil, fmt.Errorf("profile '%s' from RORILENS_PROFILE does not exist", name)
		}
		config.ActiveProfile = name
	}

	// Validate and set current profile
	if err := config.setCurrentProfile(); err != nil {
		return nil, fmt.Errorf("failed to set current profile: %w", err)
	}

	return config, nil
}

// UseProfile makes name the current profile for this process only
func (c *Config) UseProfile(name string) error {
	if _, exists := c.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' does not exist", name)
	}
	c.ActiveProfile = name
	return c.setCurrentProfile()
}

// DeleteProfile removes name. Deleting the active profile activates the
// first remaining one; deleting the last profile starts over from the
// default profile.
func (c *Config) DeleteProfile(name string) error {
	if _, exists := c.Profiles[name]; !exists {
		return fmt.Errorf("profile '%s' does not exist", name)
	}

	delete(c.Profiles, name)

	if len(c.Profiles) == 0 {
		c.Profiles["default"] = defaultProfile()
		c.ActiveProfile = "default"
	} else if c.ActiveProfile == name {
		c.ActiveProfile = c.ProfileNames()[0]
	}

	profile := c.Profiles[c.ActiveProfile]
	c.currentProfile = &profile
	return nil
}

// CurrentProfile returns the active profile with environment fallbacks
// applied
func (c *Config) CurrentProfile() Profile {
	if c.currentProfile == nil {
		return withEnv(defaultProfile())
	}
	return withEnv(*c.currentProfile)
}

// ProfileNames returns the profile names in sorted order
func (c *Config) ProfileNames() []string {
	names := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InputMode returns the profile's input mode, URL when unset or unknown
func (c *Config) InputMode() models.InputMode {
	if mode, ok := models.ParseInputMode(c.CurrentProfile().InputMode); ok {
		return mode
	}
	return models.ModeURL
}

// ClassifierOptions maps the current profile onto backend options
func (c *Config) ClassifierOptions() classifier.Options {
	p := c.CurrentProfile()

	timeout := p.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return classifier.Options{
		Backend:      p.Backend,
		ModelPath:    expandHome(p.ModelPath),
		MetadataPath: expandHome(p.MetadataPath),
		LabelsPath:   expandHome(p.LabelsPath),
		LibraryPath:  expandHome(p.LibraryPath),
		APIKey:       p.APIKey,
		BaseURL:      p.BaseURL,
		Model:        p.Model,
		TopK:         p.TopK,
		Timeout:      time.Duration(timeout) * time.Second,
	}
}

// Validate checks the fields every backend relies on
func (p Profile) Validate() error {
	if p.Backend == "" {
		return fmt.Errorf("backend is required")
	}
	if p.InputMode != "" {
		if _, ok := models.ParseInputMode(p.InputMode); !ok {
			return fmt.Errorf("input mode must be 'url' or 'file', got '%s'", p.InputMode)
		}
	}
	if p.TopK < 0 {
		return fmt.Errorf("top_k cannot be negative")
	}
	if p.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}
	return nil
}

// withEnv fills fields the profile leaves empty from the environment
func withEnv(p Profile) Profile {
	if p.APIKey == "" {
		p.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if p.LibraryPath == "" {
		p.LibraryPath = os.Getenv("ONNXRUNTIME_LIB")
	}
	return p
}

// Path returns the config file location, under RORILENS_HOME when set
func Path() (string, error) {
	var configDir string

	// Use RORILENS_HOME if set, otherwise use user's home directory
	if home := os.Getenv("RORILENS_HOME"); home != "" {
		configDir = home
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = homeDir
	}

	return filepath.Join(configDir, ".rorilens", "config.json"), nil
}

func ensureConfigDir(configPath string) error {
	configDir := filepath.Dir(configPath)
	return os.MkdirAll(configDir, 0755)
}

func loadConfigFile(configPath string) (*Config, error) {
	// If config file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return createDefaultConfig(configPath)
	}

	// Read existing config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}

func defaultProfile() Profile {
	return Profile{
		Backend:   DefaultBackend,
		Model:     DefaultModel,
		InputMode: string(models.ModeURL),
		TopK:      classifier.DefaultTopK,
	}
}

// DefaultProfiles is what a fresh config file starts with
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"default": defaultProfile(),
		"local": {
			Backend:      "onnx",
			InputMode:    string(models.ModeFile),
			TopK:         classifier.DefaultTopK,
			ModelPath:    "~/.rorilens/models/mobilenet_v2.onnx",
			MetadataPath: "~/.rorilens/models/mobilenet_v2.yaml",
		},
	}
}

func createDefaultConfig(configPath string) (*Config, error) {
	config := &Config{
		Profiles:      DefaultProfiles(),
		ActiveProfile: "default",
	}

	// Save default config to file
	if err := saveConfig(config, configPath); err != nil {
		return nil, err
	}

	return config, nil
}

func saveConfig(config *Config, configPath string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0600)
}

func (c *Config) Save() error {
	configPath, err := Path()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	return saveConfig(c, configPath)
}

func (c *Config) setCurrentProfile() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("no profiles defined")
	}

	profile, exists := c.Profiles[c.ActiveProfile]
	if !exists {
		// Fall back to the first profile by name
		c.ActiveProfile = c.ProfileNames()[0]
		profile = c.Profiles[c.ActiveProfile]
	}

	if err := profile.Validate(); err != nil {
		return fmt.Errorf("profile '%s': %w", c.ActiveProfile, err)
	}

	c.currentProfile = &profile
	return nil
}

func expandHome(path string) string {
	if len(path) < 2 || path[:2] != "~/" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
