package store

import domainerrors "github.com/listenupapp/sortir/internal/errors"

// ErrNotFound is returned by a Medium when the key does not exist.
var ErrNotFound = domainerrors.NotFound("key not found")
