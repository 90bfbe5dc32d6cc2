// Package testutil holds shared helpers for tests: stub operators that count
// their invocations or fail on demand, graph builders and a thread-safe log
// buffer.
package testutil
