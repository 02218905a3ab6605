/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package validation checks RPC call arguments against constraints declared in struct tags.
//
// Only arguments implementing Validatable are checked. Constraints are grouped: every group
// is bound to its own struct tag key (the default group uses the "validate" tag), and a call
// is validated against an effective set of groups. The set comes from the "validator.groups"
// reference parameter and can be overridden for a single call with NewContextWithGroups.
//
//	type CreateUserRequest struct {
//		Name  string `json:"name" validate:"required" validate_update:"max=64"`
//		Email string `json:"email" validate:"required,email"`
//	}
//
//	func (*CreateUserRequest) DeclaresConstraints() {}
//
//	v := validation.Default()
//	_ = v.RegisterGroup("update", "validate_update")
//	err := v.Validate(ctx, &CreateUserRequest{}, validation.ParseGroups("default;update"))
package validation
