package version

// Set via -ldflags at build time.
var (
	Version = "0.1.0-dev"
	Commit  = ""
)

// String returns the human-readable version string.
func String() string {
	if Commit == "" {
		return Version
	}
	return Version + "+" + Commit
}
