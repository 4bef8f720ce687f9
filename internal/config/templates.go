package config

import (
	"fmt"
	"os"
)

// Template is a commented config carrying every default.
func Template() string {
	return template
}

func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const template = `# fundgov operator config
program_id = "` + DefaultProgramID + `"
store_path = "fundgov.db"
mint_decimals = 6
# yes votes must reach this share of total deposit, in basis points
quorum_bps = 5000
log_level = "info"

[rent]
lamports_per_byte_year = 3480
exemption_threshold = "2.0"
account_overhead = 128
`
