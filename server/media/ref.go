package media

import (
	"errors"
	"path"
	"strings"
)

/*
Object references are slash-delimited relative paths of the form
ownerID/opaqueName.ext, parsed once per request from the URL. Validation here
is a traversal blocklist, not a confinement guarantee: the store's own access
policy must also enforce owner-prefix isolation.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrInvalidPath is returned for malformed or traversal-attempting paths.
var ErrInvalidPath = errors.New("invalid object path")

// ObjectRef identifies a stored object.
type ObjectRef struct {
	Path string
}

// ParseObjectRef validates a raw path segment into an ObjectRef. At most one
// leading separator is stripped; paths containing a ".." segment or still
// beginning with a separator are rejected.
func ParseObjectRef(raw string) (ObjectRef, error) {
	if raw == "" {
		return ObjectRef{}, ErrInvalidPath
	}
	clean := strings.TrimPrefix(raw, "/")
	if clean == "" || strings.HasPrefix(clean, "/") {
		return ObjectRef{}, ErrInvalidPath
	}
	for _, segment := range strings.Split(clean, "/") {
		if segment == ".." {
			return ObjectRef{}, ErrInvalidPath
		}
	}
	return ObjectRef{Path: clean}, nil
}

// Ext returns the reference's filename extension, without the dot.
func (r ObjectRef) Ext() string {
	return strings.TrimPrefix(path.Ext(r.Path), ".")
}

func (r ObjectRef) String() string {
	return r.Path
}
