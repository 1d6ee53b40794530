// Package scripts holds the built-in Risor lint scripts.
package scripts

import "embed"

// FS contains lint/*.risor. Each script sees the file's tree as "tree" and
// reports problems through "report".
//
//go:embed lint/*.risor
var FS embed.FS
