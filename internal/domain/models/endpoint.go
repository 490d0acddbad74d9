package models

import (
	"strings"
	"unicode"

	"github.com/opendgw/odg/pkg/constants"
)

// EndpointDescriptor identifies a requested endpoint and its classification.
type EndpointDescriptor struct {
	Method string
	Path   string
	Type   constants.EndpointType
}

// ParseEndpoint parses a raw path string into a classified endpoint
// descriptor. It returns false for malformed input: empty paths, paths not
// rooted at "/", or paths containing whitespace or control characters.
func ParseEndpoint(rawPath, method string) (EndpointDescriptor, bool) {
	trimmed := strings.TrimSpace(rawPath)
	if trimmed == "" || !strings.HasPrefix(trimmed, "/") {
		return EndpointDescriptor{}, false
	}
	for _, r := range trimmed {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return EndpointDescriptor{}, false
		}
	}

	return EndpointDescriptor{
		Method: strings.ToUpper(method),
		Path:   trimmed,
		Type:   ClassifyEndpoint(trimmed),
	}, true
}

// ClassifyEndpoint returns PUBLIC when the path matches the fixed allowlist
// of prefixes, PROTECTED otherwise.
func ClassifyEndpoint(path string) constants.EndpointType {
	for _, prefix := range constants.PublicEndpointPrefixes {
		if strings.HasPrefix(path, prefix) {
			return constants.EndpointTypePublic
		}
	}
	return constants.EndpointTypeProtected
}

// IsPublic reports whether the endpoint bypasses authorization and quota.
func (e EndpointDescriptor) IsPublic() bool {
	return e.Type == constants.EndpointTypePublic
}
