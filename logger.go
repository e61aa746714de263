package sessiongate

import "github.com/go-logr/logr"

func resolveLogger(log logr.Logger) logr.Logger {
	if log.GetSink() == nil {
		return logr.Discard()
	}
	return log.WithName("sessiongate")
}

// tokenRef is a short, non-reversible handle for a token in log lines.
func tokenRef(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}
