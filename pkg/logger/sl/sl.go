// Package sl holds small slog attribute helpers shared by every layer.
package sl

import "log/slog"

// Err wraps an error into a slog attribute under the "error" key.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}

	return slog.String("error", err.Error())
}
