/*
Package dsl provides the build-time node type used to assemble a canopy state tree.

Contributions receive an existing node (their declared parent) and attach new
subtrees under it. Nodes are only mutable while the machine is being assembled;
the runtime freezes them into immutable states afterwards.

Example usage:

	func contributeMenus(parent *dsl.Node) error {
		menu := dsl.State("menu",
			dsl.Enter(func(from, to string) { log.Println("menu opened") }),
		).Add(
			dsl.State("menu/main"),
			dsl.State("menu/options"),
		)
		return parent.Attach(menu)
	}
*/
package dsl
