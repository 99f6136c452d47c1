package store

import "errors"

var ErrNoPatcher = errors.New("STORE_PATCH_UNSUPPORTED")
