package library

import "embed"

//go:embed defaults
var Defaults embed.FS

// RegisterDefaults registers the documents shipped with the binary.
func (r *Resolver) RegisterDefaults() error {
	return r.RegisterFS(Defaults, "defaults")
}
