package handlers

import (
	"errors"
	"fmt"
)

var (
	errEmptyQuery   = errors.New("query parameter q is required")
	errInvalidLimit = errors.New("limit must be a positive integer")
)

func errInvalidID(name string) error {
	return fmt.Errorf("invalid %s", name)
}
