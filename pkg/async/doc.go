// Package async provides a minimal Future used as the awaitable of asynchronous transitions.
package async
