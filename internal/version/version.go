package version

import "fmt"

// set through -ldflags "-X baikalctl/internal/version.Version=..."
var (
	Version   = "0.0.0-dev"
	Timestamp = "unknown"
)

const Name = "baikalctl"

// Header is the banner printed by --version.
func Header(binary string) string {
	return fmt.Sprintf("%s v%s %s", binary, Version, Timestamp)
}
