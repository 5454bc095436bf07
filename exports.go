package canopy

import (
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/aretw0/canopy/pkg/registry"
)

// RootStateID is the reserved id of the tree root.
const RootStateID = domain.RootStateID

// State creates a detached builder node. See dsl.State.
func State(id string, opts ...dsl.Option) *dsl.Node {
	return dsl.State(id, opts...)
}

// Under declares a contribution that builds a subtree below parent. See registry.Under.
func Under(parent string, apply registry.ApplyFunc, opts ...registry.Option) registry.Descriptor {
	return registry.Under(parent, apply, opts...)
}
