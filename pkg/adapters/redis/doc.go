// Package redis publishes machine transitions over Redis pub/sub and lets
// remote tools watch them.
package redis
