package main

import "majestik.world/internal/boundary"

// createCore builds an instance from an optional host configuration. A nil
// config means the host asked for defaults, which is an allowed calling
// convention, not an error.
func createCore(cfg *boundary.Config) (boundary.Handle, boundary.Result) {
	if cfg == nil {
		def := boundary.ConfigDefaults()
		return boundary.CoreCreate(def)
	}
	return boundary.CoreCreate(*cfg)
}
