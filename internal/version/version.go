// Package version holds the release version stamped into the CLI and the
// outbound User-Agent.
package version

// Current is the release version, without a leading "v".
const Current = "0.1.0"

// UserAgent returns the User-Agent sent to the Ensembl service.
func UserAgent() string {
	return "ensembl-homology-pipeline/" + Current
}
