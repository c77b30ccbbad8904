package repository

import "errors"

// ErrDuplicateFolio indica que el folio ya existe para la empresa (constraint único).
var ErrDuplicateFolio = errors.New("folio duplicado")
