// internal/workers/report/validate-report/config.go
package validatereport

import "time"

type Config struct {
	Timeout time.Duration
	// RequirePassed fails the job with QUALITY_GATE_FAILED when the verdict is below
	// ACCEPTABLE instead of leaving the decision to the process model.
	RequirePassed bool
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Minute,
	}
}
