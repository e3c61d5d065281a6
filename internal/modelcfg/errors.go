package modelcfg

import "errors"

// artifactNotFoundError is the only failure configuration resolution reports.
type artifactNotFoundError struct{ path string }

func (e artifactNotFoundError) Error() string { return "model artifact not found: " + e.path }

// ErrArtifactNotFound returns an error for a model path that does not exist.
func ErrArtifactNotFound(path string) error { return artifactNotFoundError{path: path} }

// IsArtifactNotFound reports whether err (or anything it wraps) is a missing artifact.
func IsArtifactNotFound(err error) bool {
	var e artifactNotFoundError
	return errors.As(err, &e)
}
