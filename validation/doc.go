// Package validation validates request and event structs with
// go-playground/validator and reports failures as INVALID_INPUT AppErrors.
//
//	type Notification struct {
//	    Key string `json:"sourceObjectKey" validate:"required,objectkey"`
//	}
//	err := validation.Validate(n)
package validation
