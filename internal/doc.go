// Package internal contains the implementation packages of the tmplbuild CLI.
//
// # Package Organization
//
//   - config: project configuration, package layout and environment files
//   - scanner: template discovery inside package directories
//   - build: template compilation, the output manifest and the build orchestrator
//   - lint: static analysis of the built tree under a scoped search path
//   - searchpath: process-wide module search path with scoped additions
//   - watcher: debounced file watching that triggers incremental rebuilds
//   - errors: typed build errors and engine diagnostic parsing
//   - logging: leveled structured logging
//   - validation: path and command argument checks
//   - version: build information injected at link time
//   - testutils: project fixtures for package tests
//
// # Build Flow
//
// The orchestrator discovers templates for every configured package,
// compiles stale ones into the build library, records each artifact in the
// manifest and then runs the base copy step. The lint step ensures a build
// has happened, prepends the build library to the search path for the
// duration of the check and restores it afterwards.
package internal
