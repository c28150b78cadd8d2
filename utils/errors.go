package utils

import "errors"

// RunAndWrapOnError runs fn and joins its error, if any, with err.
func RunAndWrapOnError(fn func() error, err error) error {
	if fnErr := fn(); fnErr != nil {
		return errors.Join(err, fnErr)
	}
	return err
}
