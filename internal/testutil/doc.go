// Package testutil provides fixtures and deterministic helpers for tests.
package testutil
