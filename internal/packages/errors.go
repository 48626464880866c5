package packages

import "errors"

var ErrUnknownPackage = errors.New("unknown package")
