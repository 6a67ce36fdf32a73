// Package validation provides common validation utilities for configuration
// parameters across the jobpool library.
//
// The helpers return *errors.ValidationError values so that constructors and
// the configuration loader report problems in one consistent format.
package validation
