package catalog

import "errors"

var (
	// ErrDirectoryNotFound indicates the capture directory is missing or unreadable.
	ErrDirectoryNotFound = errors.New("capture directory not found")
	// ErrIndexNotFound indicates no snapshot has been saved yet.
	ErrIndexNotFound = errors.New("index not found")
	// ErrPersistence indicates the snapshot could not be written.
	ErrPersistence = errors.New("cannot persist index")
	// ErrFileNotFound indicates a download name does not resolve to a capture file.
	ErrFileNotFound = errors.New("file not found")
	// ErrBuildInProgress indicates another process holds the rebuild lock.
	ErrBuildInProgress = errors.New("another index build is in progress")
)
