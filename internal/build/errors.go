package build

import "errors"

// ErrStaticCopy marks a failed static asset copy. It is reported but never
// fails a full build.
var ErrStaticCopy = errors.New("static copy failed")

// ErrLocaleRoot marks an unreadable locale root.
var ErrLocaleRoot = errors.New("locale root unreadable")
