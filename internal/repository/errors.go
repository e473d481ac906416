package repository

import "errors"

// ErrAlreadyExists возвращается Create при гонке на уникальном email
var ErrAlreadyExists = errors.New("identity already exists")
