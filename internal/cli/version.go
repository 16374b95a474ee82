package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/nounverb/internal/buildinfo"
)

const (
	defaultModulePath = "github.com/aidanlsb/nounverb"
	develVersion      = "devel"
)

type versionInfo struct {
	Version    string `json:"version"`
	ModulePath string `json:"module_path"`
	Commit     string `json:"commit,omitempty"`
	CommitTime string `json:"commit_time,omitempty"`
	Modified   bool   `json:"modified"`
	GoVersion  string `json:"go_version"`
	GOOS       string `json:"goos"`
	GOARCH     string `json:"goarch"`
}

// readBuildInfo is swapped in tests.
var readBuildInfo = debug.ReadBuildInfo

// Text renders the version block printed without --json.
func (v versionInfo) Text() string {
	lines := []string{
		fmt.Sprintf("%s %s", Program, v.Version),
		"module: " + v.ModulePath,
	}
	if v.Commit != "" {
		lines = append(lines, "commit: "+v.Commit)
	}
	if v.CommitTime != "" {
		lines = append(lines, "commit_time: "+v.CommitTime)
	}
	lines = append(lines,
		"go: "+v.GoVersion,
		fmt.Sprintf("platform: %s/%s", v.GOOS, v.GOARCH),
		fmt.Sprintf("modified: %t", v.Modified),
	)
	return strings.Join(lines, "\n")
}

func (r *runner) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show nv version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.emit("version", currentVersionInfo(), 0)
		},
	}
}

// currentVersionInfo reads the embedded module and VCS stamps, then fills
// gaps from the ldflags variables in buildinfo.
func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:    develVersion,
		ModulePath: defaultModulePath,
		GoVersion:  runtime.Version(),
		GOOS:       runtime.GOOS,
		GOARCH:     runtime.GOARCH,
	}

	if bi, ok := readBuildInfo(); ok && bi != nil {
		settings := make(map[string]string, len(bi.Settings))
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
		setIf(&info.ModulePath, bi.Main.Path)
		setIf(&info.GoVersion, bi.GoVersion)
		setIf(&info.GOOS, settings["GOOS"])
		setIf(&info.GOARCH, settings["GOARCH"])
		info.Version = normalizeVersion(bi.Main.Version)
		info.Commit = settings["vcs.revision"]
		info.CommitTime = settings["vcs.time"]
		info.Modified = strings.EqualFold(settings["vcs.modified"], "true")
	}

	if info.Version == develVersion {
		info.Version = normalizeVersion(buildinfo.Version)
	}
	if info.Commit == "" {
		info.Commit = buildinfo.Commit
	}
	if info.CommitTime == "" {
		info.CommitTime = buildinfo.Date
	}
	return info
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func normalizeVersion(v string) string {
	if v == "" || v == "(devel)" {
		return develVersion
	}
	return v
}
