package config

import "strings"

// Environment variables read by Load.
const (
	EnvConfig    = "QPDIFF_CONFIG"
	EnvCatalog   = "QPDIFF_CATALOG"
	EnvDBDSN     = "QPDIFF_DB_DSN"
	EnvStoreDir  = "QPDIFF_STORE_DIR"
	EnvStrategy  = "QPDIFF_STRATEGY"
	EnvFormat    = "QPDIFF_FORMAT"
	EnvLogLevel  = "QPDIFF_LOG_LEVEL"
	EnvLogFormat = "QPDIFF_LOG_FORMAT"
)

// ParseEnviron converts an environ slice (["KEY=VALUE", ...]) into a map.
// Values may be empty or contain "="; entries without "=" are skipped and
// later entries win.
func ParseEnviron(environ []string) map[string]string {
	result := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		result[key] = value
	}
	return result
}

func applyEnv(c *Config, env map[string]string) {
	for name, field := range map[string]*string{
		EnvCatalog:   &c.Catalog,
		EnvDBDSN:     &c.Database.DSN,
		EnvStoreDir:  &c.Store.Dir,
		EnvStrategy:  &c.Compare.Strategy,
		EnvFormat:    &c.Compare.Format,
		EnvLogLevel:  &c.Logging.Level,
		EnvLogFormat: &c.Logging.Format,
	} {
		if v := env[name]; v != "" {
			*field = v
		}
	}
}
