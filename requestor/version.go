package requestor

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/blang/semver"
)

// Version is the client library version reported to the API.
const Version = "0.3.0"

var clientVersion = semver.MustParse(Version)

// ClientVersion returns the parsed library version
func ClientVersion() semver.Version {
	return clientVersion
}

// DefaultUserAgent is sent as User-Agent unless WithUserAgent overrides it.
func DefaultUserAgent() string {
	return fmt.Sprintf("VivialConnect GoClient %s", clientVersion)
}

// clientUserAgent describes the client in the X-VivialConnect-User-Agent header
func clientUserAgent() string {
	ua := map[string]string{
		"client_version": clientVersion.String(),
		"lang":           "go",
		"publisher":      "vivialconnect",
		"request_lib":    "net/http",
		"lang_version":   runtime.Version(),
		"platform":       runtime.GOOS + "/" + runtime.GOARCH,
	}
	data, err := json.Marshal(ua)
	if err != nil {
		return "{}"
	}
	return string(data)
}
