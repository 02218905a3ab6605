/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package grpcclient

import (
	"strings"
	"time"

	"github.com/acronis/go-rpcinvoker/config"
)

// Reference parameters recognized by the invoker.
const (
	ParamMethodRetries   = "method.retries"
	ParamRetryMethods    = "retry.methods"
	ParamRetryInterval   = "retry.interval"
	ParamFallbackEnable  = "fallback.enable"
	ParamFallbackMethods = "fallback.methods"
	ParamValidatorGroups = "validator.groups"
)

// DefaultRetryInterval is the initial delay between retry attempts.
const DefaultRetryInterval = 100 * time.Millisecond

func paramInt(params config.DataProvider, key string, defVal int) (int, error) {
	if params == nil || !params.IsSet(key) {
		return defVal, nil
	}
	v, err := params.GetInt(key)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Inner: err}
	}
	return v, nil
}

func paramBool(params config.DataProvider, key string, defVal bool) (bool, error) {
	if params == nil || !params.IsSet(key) {
		return defVal, nil
	}
	v, err := params.GetBool(key)
	if err != nil {
		return false, &ConfigurationError{Key: key, Inner: err}
	}
	return v, nil
}

func paramString(params config.DataProvider, key string) (string, error) {
	if params == nil || !params.IsSet(key) {
		return "", nil
	}
	v, err := params.GetString(key)
	if err != nil {
		return "", &ConfigurationError{Key: key, Inner: err}
	}
	return v, nil
}

func paramDuration(params config.DataProvider, key string, defVal time.Duration) (time.Duration, error) {
	if params == nil || !params.IsSet(key) {
		return defVal, nil
	}
	v, err := params.GetDuration(key)
	if err != nil {
		return 0, &ConfigurationError{Key: key, Inner: err}
	}
	return v, nil
}

// paramList reads a list of names. A comma-separated string and a YAML/JSON list are both accepted.
// Surrounding whitespace is trimmed and empty names are dropped.
func paramList(params config.DataProvider, key string) ([]string, error) {
	if params == nil || !params.IsSet(key) {
		return nil, nil
	}
	var items []string
	if s, ok := params.Get(key).(string); ok {
		items = strings.Split(s, ",")
	} else {
		var err error
		if items, err = params.GetStringSlice(key); err != nil {
			return nil, &ConfigurationError{Key: key, Inner: err}
		}
	}
	res := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			res = append(res, item)
		}
	}
	return res, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
