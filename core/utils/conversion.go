package utils

import (
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// SplitList splits a comma separated value into its non-blank, trimmed items.
func SplitList(val any) []string {
	var out []string
	for _, item := range strings.Split(cast.ToString(val), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// KeyValue is a single environment entry.
type KeyValue struct {
	Key   string
	Value string
}

// EnvWithPrefix returns the non-empty entries of environ ("KEY=value") whose
// key starts with prefix, sorted by key.
func EnvWithPrefix(environ []string, prefix string) []KeyValue {
	var out []KeyValue
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || strings.TrimSpace(value) == "" {
			continue
		}
		out = append(out, KeyValue{Key: key, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ToInt converts a value to int, returning 0 when it cannot.
func ToInt(val any) int {
	return cast.ToInt(val)
}

// ToBool converts a value to bool. "1" and "true" are true.
func ToBool(val any) bool {
	return cast.ToBool(val)
}
