package executor

import (
	"os"
	"strings"
)

// sensitiveParamKeys names tool-input keys whose values are scrubbed before
// a step's input is logged. Overridable via FORMFLOW_REDACT_KEYS
// (comma-separated), otherwise a conservative built-in list is used.
var sensitiveParamKeys = defaultSensitiveKeys()

func defaultSensitiveKeys() map[string]bool {
	if env := strings.TrimSpace(os.Getenv("FORMFLOW_REDACT_KEYS")); env != "" {
		keys := map[string]bool{}
		for _, k := range strings.Split(env, ",") {
			keys[strings.ToLower(strings.TrimSpace(k))] = true
		}
		return keys
	}
	return map[string]bool{
		"api_key": true, "apikey": true, "authorization": true, "auth": true,
		"password": true, "passwd": true, "secret": true, "token": true,
		"bearer": true, "client_secret": true,
	}
}

const redactedValue = "***REDACTED***"

// redactParams returns a copy of params (nested maps and slices copied
// too) with any key in
// sensitiveParamKeys (case-insensitive, at any nesting depth) replaced by a
// fixed placeholder, so logged tool input never leaks credentials.
func redactParams(params map[string]interface{}) map[string]interface{} {
	return redactMap(params).(map[string]interface{})
}

func redactMap(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if sensitiveParamKeys[strings.ToLower(k)] {
				out[k] = redactedValue
				continue
			}
			out[k] = redactMap(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = redactMap(item)
		}
		return out
	default:
		return v
	}
}
