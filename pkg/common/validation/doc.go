// Package validation checks the arguments of cronflow's public API and
// reports failures as *errors.ValidationError, so callers can test for
// them with errors.IsValidationError.
package validation
