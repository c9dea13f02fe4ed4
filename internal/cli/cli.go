// Package cli provides the command-line interface for StockAgent
package cli

// Version is set at build time.
var Version = "dev"
