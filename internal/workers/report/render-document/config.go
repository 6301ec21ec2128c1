// internal/workers/report/render-document/config.go
package renderdocument

import "time"

type Config struct {
	Timeout        time.Duration
	ArchiveTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:        time.Minute,
		ArchiveTimeout: 10 * time.Second,
	}
}
