// Package postgres owns the application's PostgreSQL handle.
//
// A Handle starts Unbound and is bound exactly once by Initialize, which
// resolves connection settings from the environment and installs request
// hooks on the application: every request scope acquires one pooled
// connection through a Session and releases it when the scope ends.
package postgres
