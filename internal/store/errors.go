package store

import "errors"

// ErrNotFound is returned by updates that target a missing row.
var ErrNotFound = errors.New("not found")

// ErrorClassifier allows errors to declare their classification.
// Known kinds: "not_found", "transport", "validation", "configuration".
type ErrorClassifier interface {
	ErrorKind() string
}

// ErrorKind returns the classification of err, or "internal" when err does
// not implement ErrorClassifier.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotFound) {
		return "not_found"
	}
	var classifier ErrorClassifier
	if errors.As(err, &classifier) {
		return classifier.ErrorKind()
	}
	return "internal"
}
