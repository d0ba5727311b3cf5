// ABOUTME: Version information for the player and feed server
// ABOUTME: Version can be overridden at build time with -ldflags
package version

// Version is set by the release build.
var Version = "0.3.0"

const (
	Product      = "liveaudio"
	Manufacturer = "camview"
)

// UserAgent identifies the player to feed servers.
func UserAgent() string {
	return Product + "/" + Version
}
