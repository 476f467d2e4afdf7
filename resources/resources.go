package resources

import "embed"

//go:embed migrations policy
var FS embed.FS
