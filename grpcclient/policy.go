/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"github.com/acronis/go-rpcinvoker/config"
)

// Policy is the effective retry and fallback policy of one call.
type Policy struct {
	Retries         int
	FallbackEnabled bool
}

// PolicyResolver derives the call policy of a method from reference parameters.
// Policy is never cached since parameters may change between calls.
type PolicyResolver struct{}

// ResolveRetries returns the number of retries for the method.
// Retries are opt-in: the default retry count (method.retries) is applied only to methods
// listed in retry.methods, all other methods get 0.
func (PolicyResolver) ResolveRetries(methodName string, params config.DataProvider) (int, error) {
	retries, err := paramInt(params, ParamMethodRetries, 0)
	if err != nil {
		return 0, err
	}
	if retries < 0 {
		retries = 0
	}
	methods, err := paramList(params, ParamRetryMethods)
	if err != nil {
		return 0, err
	}
	if len(methods) == 0 || !containsName(methods, methodName) {
		return 0, nil
	}
	return retries, nil
}

// ResolveFallback reports whether fallback is enabled for the method.
// If fallback.methods is not empty, only listed methods may use fallback.
func (PolicyResolver) ResolveFallback(methodName string, params config.DataProvider) (bool, error) {
	enabled, err := paramBool(params, ParamFallbackEnable, false)
	if err != nil {
		return false, err
	}
	methods, err := paramList(params, ParamFallbackMethods)
	if err != nil {
		return false, err
	}
	if len(methods) != 0 {
		return enabled && containsName(methods, methodName), nil
	}
	return enabled, nil
}

// Resolve returns the complete policy of the method.
func (r PolicyResolver) Resolve(methodName string, params config.DataProvider) (Policy, error) {
	retries, err := r.ResolveRetries(methodName, params)
	if err != nil {
		return Policy{}, err
	}
	fallback, err := r.ResolveFallback(methodName, params)
	if err != nil {
		return Policy{}, err
	}
	return Policy{Retries: retries, FallbackEnabled: fallback}, nil
}
