package vitals

// Version information for the vitals SDK
const (
	// Version is the current SDK version
	Version = "development"

	// APIVersion is the current API version
	APIVersion = "v1"

	// BuildDate is set during build time
	BuildDate = "development"

	// GitCommit is set during build time
	GitCommit = "unknown"
)
