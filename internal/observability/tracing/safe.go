package tracing

import (
	"errors"
	"strings"

	"github.com/smallbiznis/billingcore/internal/apperr"
	"go.opentelemetry.io/otel/attribute"
)

var sensitiveKeys = []string{"password", "secret", "token", "authorization", "email", "phone", "address"}

// SafeAttributes drops attributes whose keys look like credentials or personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		key := strings.ToLower(string(attr.Key))
		if isSensitive(key) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

// SafeError reduces err to its classification so raw SQL or payloads never reach a span.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	return errors.New(apperr.CodeOf(err))
}

func isSensitive(key string) bool {
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
