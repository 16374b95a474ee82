package cli

import (
	"encoding/json"
	"runtime"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/nounverb/internal/app"
)

func stubBuildInfo(t *testing.T, version string, settings map[string]string) {
	t.Helper()
	prev := readBuildInfo
	t.Cleanup(func() { readBuildInfo = prev })

	if settings == nil {
		readBuildInfo = func() (*debug.BuildInfo, bool) { return nil, false }
		return
	}
	bi := &debug.BuildInfo{
		GoVersion: "go1.23.4",
		Main:      debug.Module{Path: defaultModulePath, Version: version},
	}
	for k, v := range settings {
		bi.Settings = append(bi.Settings, debug.BuildSetting{Key: k, Value: v})
	}
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, true }
}

func TestCurrentVersionInfo(t *testing.T) {
	t.Run("build info", func(t *testing.T) {
		stubBuildInfo(t, "v1.2.3", map[string]string{
			"vcs.revision": "abc123",
			"vcs.time":     "2026-02-14T17:00:00Z",
			"vcs.modified": "true",
			"GOOS":         "windows",
			"GOARCH":       "amd64",
		})

		assert.Equal(t, versionInfo{
			Version:    "v1.2.3",
			ModulePath: defaultModulePath,
			Commit:     "abc123",
			CommitTime: "2026-02-14T17:00:00Z",
			Modified:   true,
			GoVersion:  "go1.23.4",
			GOOS:       "windows",
			GOARCH:     "amd64",
		}, currentVersionInfo())
	})

	t.Run("no build info", func(t *testing.T) {
		stubBuildInfo(t, "", nil)

		info := currentVersionInfo()
		assert.Equal(t, develVersion, info.Version)
		assert.Equal(t, defaultModulePath, info.ModulePath)
		assert.Equal(t, runtime.Version(), info.GoVersion)
		assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.GOOS+"/"+info.GOARCH)
		assert.False(t, info.Modified)
	})
}

func TestNormalizeVersion(t *testing.T) {
	assert.Equal(t, develVersion, normalizeVersion(""))
	assert.Equal(t, develVersion, normalizeVersion("(devel)"))
	assert.Equal(t, "v0.1.0", normalizeVersion("v0.1.0"))
}

func TestVersionCommandJSONOutput(t *testing.T) {
	stubBuildInfo(t, "(devel)", map[string]string{
		"vcs.revision": "deadbeef",
		"vcs.modified": "false",
		"GOOS":         "darwin",
		"GOARCH":       "arm64",
	})

	res := execute(t, app.Options{SkipPlugins: true}, "version", "--json")
	require.NoError(t, res.err, "stderr=%s", res.stderr)

	var resp struct {
		OK   bool        `json:"ok"`
		Data versionInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp), res.stdout)
	assert.True(t, resp.OK)
	assert.Equal(t, develVersion, resp.Data.Version)
	assert.Equal(t, "deadbeef", resp.Data.Commit)
	assert.Equal(t, "darwin/arm64", resp.Data.GOOS+"/"+resp.Data.GOARCH)
}

func TestVersionText(t *testing.T) {
	info := versionInfo{Version: "v0.4.0", ModulePath: defaultModulePath, GoVersion: "go1.23.4", GOOS: "linux", GOARCH: "amd64"}
	want := "nv v0.4.0\nmodule: github.com/aidanlsb/nounverb\ngo: go1.23.4\nplatform: linux/amd64\nmodified: false"
	assert.Equal(t, want, info.Text())

	info.Commit = "abc"
	assert.Contains(t, info.Text(), "\ncommit: abc\n")
}
