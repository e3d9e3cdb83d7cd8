// Package build orchestrates locale build passes, full builds and the
// static asset copy.
//
// BuildLocale resolves the locale's metadata and runs one pipeline pass into
// <output>/<locale>. FullBuild discovers every locale directory and builds
// them concurrently next to the static copy; one locale failing never stops
// its siblings. CopyStatic mirrors the static tree into <output>/static.
package build
