package models

import (
	"path"
	"strings"

	"github.com/opendgw/odg/pkg/constants"
	"github.com/opendgw/odg/pkg/errors"
)

// DataPath is a validated, normalized, segment-decomposed relative path to a
// JSON resource. It is immutable once constructed and is the only value ever
// used to build a storage lookup key. It must never be concatenated with a
// second, independently controlled base path without re-validating that the
// result still resolves under the intended root.
type DataPath struct {
	normalized string
	segments   []string
}

// traversalSequences are rejected by a literal scan before normalization.
// The percent-encoded and double-encoded variants defend against decoders
// further down the stack; the scan is case-insensitive.
var traversalSequences = []string{
	"..",
	"./",
	"//",
	"\\",
	"%2e%2e",
	"%2e/",
	"/%2e",
	"%2f",
	"%5c",
	"%252e",
	"%252f",
	"%255c",
	"%00",
	"\x00",
}

// forbiddenChars may not appear anywhere in a data path.
const forbiddenChars = `<>:"|?*`

// NewDataPath validates a raw path string into a DataPath. Checks run in a
// strict, fail-fast order so a given malformed input always yields the same
// error code.
func NewDataPath(raw string) (DataPath, error) {
	// a. non-empty after trimming
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return DataPath{}, errors.ErrInvalidPath("path must not be empty")
	}

	// b. must name a JSON resource
	if !strings.HasSuffix(trimmed, constants.DataPathExtension) {
		return DataPath{}, errors.ErrInvalidPathFormat("path must end with " + constants.DataPathExtension)
	}

	// c. total length
	if len(trimmed) > constants.MaxPathLength {
		return DataPath{}, errors.ErrPathTooLong(len(trimmed))
	}

	// d. literal traversal/escape scan
	lowered := strings.ToLower(trimmed)
	for _, seq := range traversalSequences {
		if strings.Contains(lowered, seq) {
			return DataPath{}, errors.ErrInvalidPathCharacters("path contains a forbidden sequence").
				WithMetadata("sequence", seq)
		}
	}

	// e. canonical normalization must be a no-op; an input whose meaning
	// changes under normalization is hiding something step d cannot see.
	normalized := path.Clean(trimmed)
	if normalized != trimmed || strings.Contains(normalized, "..") {
		return DataPath{}, errors.ErrInvalidPathCharacters("path is not in canonical form")
	}
	if strings.HasPrefix(normalized, "/") {
		return DataPath{}, errors.ErrInvalidPathCharacters("path must be relative")
	}

	// f. control characters and shell/filesystem metacharacters
	for _, r := range normalized {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(forbiddenChars, r) {
			return DataPath{}, errors.ErrInvalidPathCharacters("path contains a forbidden character")
		}
	}

	// g. segment decomposition
	segments := strings.Split(normalized, "/")
	if len(segments) == 0 {
		return DataPath{}, errors.ErrInvalidPath("path has no segments")
	}
	for _, segment := range segments {
		if segment == "" {
			return DataPath{}, errors.ErrInvalidPathCharacters("path contains an empty segment")
		}
		if len(segment) > constants.MaxSegmentLength {
			return DataPath{}, errors.ErrPathSegmentTooLong(segment)
		}
	}

	return DataPath{normalized: normalized, segments: segments}, nil
}

// Normalized returns the canonical string form of the path.
func (p DataPath) Normalized() string {
	return p.normalized
}

// String implements fmt.Stringer.
func (p DataPath) String() string {
	return p.normalized
}

// Segments returns the ordered, non-empty path segments.
func (p DataPath) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Depth returns the number of segments.
func (p DataPath) Depth() int {
	return len(p.segments)
}

// Filename returns the final segment.
func (p DataPath) Filename() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// Directory returns everything before the final segment, or "" for a
// top-level resource.
func (p DataPath) Directory() string {
	if len(p.segments) <= 1 {
		return ""
	}
	return strings.Join(p.segments[:len(p.segments)-1], "/")
}

// Extension returns the file extension including the leading dot.
func (p DataPath) Extension() string {
	return path.Ext(p.normalized)
}

// Equal reports whether two paths have the same canonical form.
func (p DataPath) Equal(other DataPath) bool {
	return p.normalized == other.normalized
}

// IsZero reports whether the path is the zero value.
func (p DataPath) IsZero() bool {
	return p.normalized == ""
}
