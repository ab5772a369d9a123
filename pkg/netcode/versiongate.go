package netcode

import (
	"strings"

	"golang.org/x/mod/semver"
)

// versionGateTag is the user_data prefix a client embeds its build version
// under, as a NUL-terminated string, so the server can apply a supplemental
// minimum-version gate on top of the connect token's own expiry check.
const versionGateTag = "nc-version:"

// versionGate reports whether rawUserData carries a version tag at least as
// new as min, which must be valid semver. A missing or malformed tag is
// rejected; a "+dev" suffixed version always passes, matching the launcher's
// own development-build carve-out.
func versionGate(min string, rawUserData []byte) bool {
	mver := min
	if mver[0] != 'v' {
		mver = "v" + mver
	}
	if !semver.IsValid(mver) {
		return true // misconfigured minimum version: don't reject everyone
	}

	rver, ok := extractVersionTag(rawUserData)
	if !ok {
		return false
	}
	if strings.HasSuffix(rver, "+dev") {
		return true
	}
	if !strings.HasPrefix(rver, "v") {
		rver = "v" + rver
	}
	if !semver.IsValid(rver) {
		return false
	}

	return semver.Compare(rver, mver) >= 0
}

// extractVersionTag finds a versionGateTag-prefixed, NUL-terminated string
// within data.
func extractVersionTag(data []byte) (string, bool) {
	idx := strings.Index(string(data), versionGateTag)
	if idx < 0 {
		return "", false
	}
	rest := data[idx+len(versionGateTag):]
	end := -1
	for i, b := range rest {
		if b == 0 {
			end = i
			break
		}
	}
	if end < 0 {
		return "", false
	}
	return string(rest[:end]), true
}
