// Package update keeps the local program and extension templates in step
// with the versions published by the API.
//
// An Engine fetches the remote version descriptor, compares it with the
// local version files and, when something is stale, downloads the matching
// archive, extracts it into a temp directory and moves it into place. Any
// failure inside the engine is reported as "update required".
package update
