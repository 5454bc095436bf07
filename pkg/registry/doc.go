// Package registry collects the contributions that build a canopy state tree and
// resolves them, wave by wave, into a single builder tree rooted at domain.RootStateID.
//
// Contributions are registered explicitly at startup (from init functions, plugin
// collection passes or tree files) instead of being discovered at runtime.
package registry
