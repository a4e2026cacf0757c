package release

import (
	_ "embed"
	"strings"
	"sync"
)

//go:embed countries.txt
var countriesFile string

var (
	countriesOnce sync.Once
	countries     []string
)

// Countries returns the ISO 3166-1 alpha-3 codes used for worldwide releases.
// The returned slice is a copy.
func Countries() []string {
	countriesOnce.Do(func() {
		for _, line := range strings.Split(countriesFile, "\n") {
			if code := strings.TrimSpace(line); code != "" {
				countries = append(countries, code)
			}
		}
	})
	return append([]string(nil), countries...)
}
