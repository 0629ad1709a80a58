package miniav

import "fmt"

const (
	versionMajor = 0
	versionMinor = 3
	versionPatch = 1
)

// Version reports the library version components.
func Version() (major, minor, patch int) {
	return versionMajor, versionMinor, versionPatch
}

// VersionString reports the library version as "major.minor.patch".
func VersionString() string {
	return fmt.Sprintf("%d.%d.%d", versionMajor, versionMinor, versionPatch)
}
