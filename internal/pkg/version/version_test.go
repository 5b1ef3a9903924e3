package version

import (
	"strings"
	"testing"
)

func TestGetFullVersion(t *testing.T) {
	oldCommit, oldBuild := GitCommit, BuildTime
	defer func() { GitCommit, BuildTime = oldCommit, oldBuild }()

	GitCommit = "abc123"
	BuildTime = "2026-02-10"
	full := GetFullVersion()
	if !strings.HasPrefix(full, Version+" (abc123) built 2026-02-10") {
		t.Errorf("unexpected full version: %s", full)
	}
	if GetProbeTag() != "NeoRecon/"+Version {
		t.Errorf("unexpected probe tag: %s", GetProbeTag())
	}
}
