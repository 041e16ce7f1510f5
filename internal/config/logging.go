package config

// LoggingConfig selects where logs go and how much of them.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	Format     string          `yaml:"format"`     // json, text
	File       string          `yaml:"file"`       // empty = stderr
	DebugMode  bool            `yaml:"debug_mode"` // overrides level with debug
	Categories map[string]bool `yaml:"categories"` // category -> on/off
}

// IsCategoryEnabled reports whether a category logs. Only an explicit
// false turns a category off.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	on, listed := c.Categories[category]
	return !listed || on
}

// EffectiveLevel is the level the logger is built with.
func (c *LoggingConfig) EffectiveLevel() string {
	switch {
	case c.DebugMode:
		return "debug"
	case c.Level == "":
		return "info"
	default:
		return c.Level
	}
}
