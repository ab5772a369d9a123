package netcode

import "testing"

func withVersionTag(v string) []byte {
	return append([]byte(versionGateTag+v), 0)
}

func TestVersionGateAllowsNewerAndEqual(t *testing.T) {
	if !versionGate("1.2.0", withVersionTag("1.2.0")) {
		t.Fatalf("expected equal version to pass")
	}
	if !versionGate("1.2.0", withVersionTag("1.3.0")) {
		t.Fatalf("expected newer version to pass")
	}
}

func TestVersionGateRejectsOlder(t *testing.T) {
	if versionGate("1.2.0", withVersionTag("1.1.0")) {
		t.Fatalf("expected older version to be rejected")
	}
}

func TestVersionGateRejectsMissingTag(t *testing.T) {
	if versionGate("1.2.0", []byte("no tag here")) {
		t.Fatalf("expected missing version tag to be rejected")
	}
}

func TestVersionGateAllowsDevSuffix(t *testing.T) {
	if !versionGate("9.9.9", withVersionTag("1.0.0+dev")) {
		t.Fatalf("expected +dev build to always pass")
	}
}
