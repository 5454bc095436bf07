/*
Package ports defines the interfaces that decouple the canopy engine from its
collaborators.

# Key Interfaces

  - Reporter: receives every fail-soft error the engine absorbs.
  - Inspector: the query side of a machine, used by presentation layers.
  - Driver: the transition side of a machine.
  - Machine: Inspector + Driver + subscriptions, consumed by the adapters.
*/
package ports
