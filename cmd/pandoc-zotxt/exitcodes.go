package main

// Exit codes
const (
	ExitSuccess       = 0 // Success
	ExitError         = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError   = 2 // Configuration error (bad config file, flag or env value)
	ExitDataError     = 3 // Data error (input is not a pandoc JSON document)
	ExitArtifactError = 4 // Bibliography file could not be written

	// lookup command
	ExitLookupNotFound = 5 // At least one key matched no record
)
