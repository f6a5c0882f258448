package config

// StoreConfig configures goal persistence.
type StoreConfig struct {
	// sqlite3 (mattn, cgo), sqlite (modernc, pure Go) or memory
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// ValidDrivers lists the supported store drivers.
var ValidDrivers = []string{"sqlite3", "sqlite", "memory"}

// Progress store modes.
const (
	ProgressModeRemote   = "remote"
	ProgressModeLocal    = "local"
	ProgressModeFallback = "fallback"
)

// ValidProgressModes lists the supported progress store modes.
var ValidProgressModes = []string{ProgressModeRemote, ProgressModeLocal, ProgressModeFallback}

// ProgressConfig selects where goal progress is persisted.
type ProgressConfig struct {
	Mode      string `yaml:"mode"`
	CachePath string `yaml:"cache_path"` // local JSON cache
	Watch     bool   `yaml:"watch"`      // reload cache on external edits
}

// PlannerConfig tunes roadmap and daily task generation.
type PlannerConfig struct {
	// Max roadmap guidance items copied into fallback tasks
	GuidanceCap int `yaml:"guidance_cap"`

	// Generate the next day's tasks once a day is fully completed
	AutoRollover bool `yaml:"auto_rollover"`

	// Budget for one roadmap or task generation, retries included.
	// Past it the fallback is used.
	GenerateTimeout string `yaml:"generate_timeout"`
}

// UsageConfig controls the LLM usage statistics file.
type UsageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}
