// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the composition root that wires the manifest,
// block registry, budget, prefetcher, and story runner together, decoupled
// from any specific entrypoint like a CLI.
package app
