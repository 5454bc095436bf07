/*
Package domain contains the core domain models shared by every canopy package.

It defines the vocabulary of the hierarchical state machine (state ids, hooks,
transition results, lifecycle events and the error taxonomy). This package is
kept pure and free of I/O, following the same Hexagonal Architecture split as
the runtime and the adapters.

# Key Entities

  - Hooks: the optional enter/exit callbacks (sync and suspendable) of a state.
  - StateInfo: a read-only snapshot of one frozen state, used for introspection.
  - Transition: the outcome of a completed state change.
  - StateEvent / TransitionEvent: observability payloads for hooks and publishers.
*/
package domain
