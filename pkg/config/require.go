package config

import "fmt"

type MissingError struct {
	Env string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required env %s", e.Env)
}

func NonEmpty(value, envName string) error {
	if value == "" {
		return &MissingError{Env: envName}
	}
	return nil
}
