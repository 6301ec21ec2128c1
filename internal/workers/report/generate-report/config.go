// internal/workers/report/generate-report/config.go
package generatereport

import "time"

type Config struct {
	Timeout         time.Duration
	DefaultLanguage string
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Minute,
		DefaultLanguage: "de",
	}
}
