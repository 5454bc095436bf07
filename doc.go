/*
Package canopy is a hierarchical finite-state machine (HFSM) for driving an
application's high-level modes: menus, loading screens, gameplay, pause, and
so on.

States form a tree under a reserved "root". Transitions walk that tree through
the lowest common ancestor of the current state and the target, exiting states
leaf to root and entering states root to leaf, so every ancestor of the active
state is always "on".

# Concept

The tree is not declared in one place. Any part of the program may contribute
a subtree under a parent it names, even a parent that another contribution has
not created yet. Assembly runs contributions in waves: each wave applies every
contribution whose parent already exists, ordered by priority, until nothing
more can be applied. Parents that never appear are reported, not fatal.

Failures are fail-soft. Unknown states, duplicate ids, missing parents and
hook errors go to a Reporter (by default, the machine's logger) and the
machine keeps running.

# Usage

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/canopy"
		"github.com/aretw0/canopy/pkg/dsl"
	)

	func main() {
		m := canopy.New(canopy.WithName("game"))

		m.Contribute(canopy.RootStateID, func(root *dsl.Node) error {
			return root.Attach(canopy.State("menu").Add(canopy.State("options")))
		})
		m.Contribute("menu", func(menu *dsl.Node) error {
			return menu.Attach(canopy.State("credits", dsl.Enter(func(from, to string) {
				fmt.Println("rolling credits")
			})))
		})

		_ = m.Assemble()
		m.Subscribe(func(from, to string) { fmt.Println(from, "->", to) })

		_ = m.ChangeState("credits")

		// Suspendable hooks are awaited by asynchronous transitions only.
		_, _ = m.ChangeStateAsync(context.Background(), "options").Await()
	}
*/
package canopy
