// Package version is the single home of the gostitch build version. The
// gate User-Agent and the version command both read from here.
package version

const (
	Number    = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)
