package logging

import "strings"

// Masked replaces the value of secret-bearing keys.
const Masked = "[redacted]"

// secretKeys are compared case-insensitively against log keys.
var secretKeys = map[string]struct{}{
	"accesstoken":     {},
	"access_token":    {},
	"refreshtoken":    {},
	"refresh_token":   {},
	"token":           {},
	"codeverifier":    {},
	"code_verifier":   {},
	"code":            {},
	"secret":          {},
	"secretaccesskey": {},
	"authorization":   {},
}

// Redact returns args with the values of token, verifier and credential keys
// masked. args is not modified; it is returned as is when nothing matched.
func Redact(args []any) []any {
	var out []any
	for i := 0; i+1 < len(args); i += 2 {
		k, ok := args[i].(string)
		if !ok {
			continue
		}
		if _, secret := secretKeys[strings.ToLower(k)]; !secret {
			continue
		}
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i+1] = Masked
	}
	if out == nil {
		return args
	}
	return out
}
