package buildinfo

// Set at build time, for example:
//
//	go build -ldflags "-X 'github.com/m3rciful/triviabot/core/buildinfo.Version=v0.3.0' \
//	  -X 'github.com/m3rciful/triviabot/core/buildinfo.Commit=$(git rev-parse --short HEAD)'"
var (
	// Version of the binary; "dev" for local builds.
	Version = "dev"
	// Commit the binary was built from.
	Commit = "local"
	// Date of the build in RFC3339.
	Date = ""
)
