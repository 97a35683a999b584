// Package exitcodes defines the standard exit codes used by fsload.
package exitcodes

// Exit code constants used by fsload
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when the service runs to completion or exits on a clean interrupt
// * Failure (1): Used for unclassified errors
// * RuntimeErr (2): Used for runtime errors such as configuration, setup or storage failures at startup
const (
	Success    = 0 // Clean run or clean interrupt
	Failure    = 1 // Unclassified errors
	RuntimeErr = 2 // Configuration, setup or other runtime errors
)
