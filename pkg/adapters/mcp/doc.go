// Package mcp exposes a machine to agents over the Model Context Protocol:
// tools to inspect and drive it, and resources with the state tree.
package mcp
