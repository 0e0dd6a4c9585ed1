package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kbukum/hypermodel/errors"
)

// Kwargs are the keyword arguments of an op invocation.
type Kwargs map[string]any

// Merge returns a new Kwargs holding k overlaid with over.
func (k Kwargs) Merge(over Kwargs) Kwargs {
	out := make(Kwargs, len(k)+len(over))
	maps.Copy(out, k)
	maps.Copy(out, over)
	return out
}

// String returns the value of key formatted as a string.
func (k Kwargs) String(key string) (string, bool) {
	v, ok := k[key]
	if !ok {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Keys returns the argument names in sorted order.
func (k Kwargs) Keys() []string {
	return slices.Sorted(maps.Keys(k))
}

// Args renders the arguments as sorted key=value tokens, the form ParseArgs reads.
func (k Kwargs) Args() []string {
	out := make([]string, 0, len(k))
	for _, key := range k.Keys() {
		v, _ := k.String(key)
		out = append(out, key+"="+v)
	}
	return out
}

// ParseKwargs builds Kwargs from alternating name/value pairs.
// Anything that is not a name/value pair is a positional argument and is
// rejected with INVALID_INVOCATION.
func ParseKwargs(kv ...any) (Kwargs, error) {
	if len(kv)%2 != 0 {
		return nil, errors.InvalidInvocation("", fmt.Sprintf("got %d values, arguments must be name/value pairs", len(kv)))
	}
	out := make(Kwargs, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok || key == "" {
			return nil, errors.InvalidInvocation("", fmt.Sprintf("argument %d is positional (%v), only named arguments are accepted", i, kv[i]))
		}
		out[key] = kv[i+1]
	}
	return out, nil
}

// ParseArgs builds Kwargs from key=value tokens. A bare token is a
// positional argument and is rejected with INVALID_INVOCATION.
func ParseArgs(tokens []string) (Kwargs, error) {
	out := make(Kwargs, len(tokens))
	for _, tok := range tokens {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			return nil, errors.InvalidInvocation("", fmt.Sprintf("positional argument %q, use key=value", tok))
		}
		out[key] = value
	}
	return out, nil
}
