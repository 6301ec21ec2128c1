// internal/workers/report/deliver-report/config.go
package deliverreport

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 3 * time.Minute,
	}
}
