// Package ports defines interfaces for the collaborators around the pipeline:
// capture, GPU device, encoder, clock, logging and file output.
package ports

// FileSystem abstracts the file operations used by debug sinks and reports.
type FileSystem interface {
	// WriteFile writes data to a file, creating parent directories as needed.
	WriteFile(path string, data []byte) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)
}
