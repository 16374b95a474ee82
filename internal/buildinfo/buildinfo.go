// Package buildinfo holds release metadata stamped in at link time, e.g.
//
//	go build -ldflags "-X github.com/aidanlsb/nounverb/internal/buildinfo.Version=v0.4.0" ./cmd/nv
//
// Local builds leave them empty and nv falls back to the module build info.
package buildinfo

var (
	Version = ""
	Commit  = ""
	Date    = ""
)
