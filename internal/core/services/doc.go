// Package services implements the driving port interfaces.
// Services contain the retrieval logic (chunk, embed, rank, blend, format)
// and orchestrate calls to driven ports (adapters).
//
// Services are pure Go with no CGO or external process dependencies.
package services
