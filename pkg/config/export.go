package config

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AsMap returns cfg keyed by its koanf paths, with durations rendered as
// strings and secrets left as SensitiveString so encoders redact them.
func (c *Config) AsMap() (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(c, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to export configuration: %w", err)
	}
	return normalizeExport(k.Raw()), nil
}

func normalizeExport(m map[string]any) map[string]any {
	for key, value := range m {
		switch v := value.(type) {
		case map[string]any:
			m[key] = normalizeExport(v)
		case time.Duration:
			m[key] = v.String()
		}
	}
	return m
}
