package domain

// RootStateID is the reserved id of the tree root.
// The engine creates the root node before any contribution runs.
const RootStateID = "root"

// Log and report sources used across the engine.
const (
	SourceMachine  = "machine"
	SourceRegistry = "registry"
	SourceFreeze   = "freeze"
)
