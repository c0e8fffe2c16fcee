// Package app assembles the application.
//
// Create runs the startup sequence: configuration, server, database handle,
// models, routes and the health endpoint. Each step depends on the previous
// one and the first failure aborts startup.
package app
