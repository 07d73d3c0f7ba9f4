// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the scheduling lifecycle: discover program
// files, load and build each module, schedule it, then report. It is
// decoupled from any specific entrypoint like a CLI.
package app
