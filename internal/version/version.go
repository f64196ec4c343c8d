package version

import "fmt"

// Заполняются при сборке:
//
//	go build -ldflags "-X github.com/vladislavdragonenkov/storefront/internal/version.version=v1.2.0"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Info returns version information populated via -ldflags.
func Info() (v, c, d string) { return version, commit, date }

// GetVersion returns the release version.
func GetVersion() string { return version }

// GetCommit returns the VCS revision the binary was built from.
func GetCommit() string { return commit }

// GetDate returns the build date.
func GetDate() string { return date }

func String() string {
	return fmt.Sprintf("storefront version=%s commit=%s date=%s", version, commit, date)
}
