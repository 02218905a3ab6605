/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package validation

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type address struct {
	City string `json:"city" validate:"required"`
	Zip  string `json:"zip" validate:"len=5" strict:"required,len=5"`
}

type createUserArg struct {
	Name    string  `json:"name" validate:"required,max=8"`
	Email   string  `json:"email" strict:"required,email"`
	Age     int     `json:"age" validate:"gte=18" strict:"gte=18"`
	Address address `json:"address"`
}

func (createUserArg) DeclaresConstraints() {}

type plainArg struct {
	Name string `validate:"required"`
}

func validArg() createUserArg {
	return createUserArg{Name: "john", Email: "john@example.com", Age: 30, Address: address{City: "Berlin", Zip: "10115"}}
}

func TestValidator_Validate(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterGroup("strict", "strict"))

	tests := []struct {
		name       string
		arg        interface{}
		groups     []string
		wantErr    bool
		wantErrMsg string
	}{
		{
			name:   "argument without constraints marker is not validated",
			arg:    plainArg{},
			groups: []string{"unknown"},
		},
		{
			name: "valid argument, default group",
			arg:  validArg(),
		},
		{
			name: "single violation",
			arg: func() createUserArg {
				a := validArg()
				a.Name = ""
				return a
			}(),
			wantErr:    true,
			wantErrMsg: "parameter[name] message[must not be empty] ",
		},
		{
			name: "nested field path",
			arg: func() createUserArg {
				a := validArg()
				a.Address.City = ""
				return a
			}(),
			wantErr:    true,
			wantErrMsg: "parameter[address.city] message[must not be empty] ",
		},
		{
			name: "all violations are collected",
			arg: func() createUserArg {
				a := validArg()
				a.Name = "very long name"
				a.Age = 10
				return a
			}(),
			wantErr: true,
			wantErrMsg: "parameter[name] message[size must be at most 8] " +
				"parameter[age] message[must be greater than or equal to 18] ",
		},
		{
			name: "strict group only",
			arg: func() createUserArg {
				a := validArg()
				a.Name = ""
				a.Email = "not-an-email"
				return a
			}(),
			groups:     []string{"strict"},
			wantErr:    true,
			wantErrMsg: "parameter[email] message[must be a well-formed email address] ",
		},
		{
			name: "duplicate violations across groups are reported once",
			arg: func() createUserArg {
				a := validArg()
				a.Age = 1
				return a
			}(),
			groups:     []string{DefaultGroup, "strict"},
			wantErr:    true,
			wantErrMsg: "parameter[age] message[must be greater than or equal to 18] ",
		},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), tt.arg, tt.groups)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			var valErr *Error
			require.ErrorAs(t, err, &valErr)
			require.Equal(t, tt.wantErrMsg, err.Error())
		})
	}
}

func TestValidator_ValidateUnknownGroup(t *testing.T) {
	arg := validArg()
	arg.Name = ""
	err := New().Validate(context.Background(), arg, []string{DefaultGroup, "missing"})
	var groupErr *UnknownGroupError
	require.ErrorAs(t, err, &groupErr)
	require.Equal(t, "missing", groupErr.Group)
}

func TestValidator_ContextGroupsOverrideConfigured(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterGroup("strict", "strict"))

	arg := validArg()
	arg.Name = ""
	arg.Email = ""

	err := v.Validate(context.Background(), arg, []string{"strict"})
	require.EqualError(t, err, "parameter[email] message[must not be empty] ")

	ctx := NewContextWithGroups(context.Background(), DefaultGroup)
	err = v.Validate(ctx, arg, []string{"strict"})
	require.EqualError(t, err, "parameter[name] message[must not be empty] ")

	// An explicitly empty set in the context means the default group, not the configured one.
	err = v.Validate(NewContextWithGroups(context.Background()), arg, []string{"strict"})
	require.EqualError(t, err, "parameter[name] message[must not be empty] ")
}

func TestValidator_RegisterGroup(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterGroup("create", "create"))
	require.NoError(t, v.RegisterGroup("create", "create"))
	require.Error(t, v.RegisterGroup("create", "other"))
	require.Error(t, v.RegisterGroup("", "tag"))
	require.Error(t, v.RegisterGroup(DefaultGroup, "custom"))
}

func TestParseGroups(t *testing.T) {
	require.Nil(t, ParseGroups(""))
	require.Nil(t, ParseGroups(" ; ;"))
	require.Equal(t, []string{"default", "strict"}, ParseGroups(" default ;strict;; "))
}

func TestDefault(t *testing.T) {
	const goroutines = 20
	results := make([]*Validator, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Default()
		}(i)
	}
	wg.Wait()
	for _, res := range results {
		require.Same(t, results[0], res)
	}
}

func TestValidator_ConcurrentValidate(t *testing.T) {
	v := New()
	require.NoError(t, v.RegisterGroup("strict", "strict"))
	arg := validArg()
	arg.Address.Zip = "1"

	var wg sync.WaitGroup
	errs := make([]error, 50)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = v.Validate(context.Background(), arg, []string{"strict"})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.EqualError(t, err, "parameter[address.zip] message[size must be 5] ")
	}
}
