package dirty

import "errors"

// ErrLocked is returned when an edit is recorded while the range is locked.
var ErrLocked = errors.New("dirty range is locked")
