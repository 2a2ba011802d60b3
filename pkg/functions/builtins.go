package functions

import (
	"encoding/base64"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/navbytes/requestkit/pkg/variable"
)

// dateTokens maps format tokens to Go layout fragments, longest first so
// YYYY is consumed before YY.
var dateTokens = []struct {
	token  string
	layout string
}{
	{"YYYY", "2006"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"ss", "05"},
}

// registerBuiltins installs the default function catalog.
func registerBuiltins(r *Registry) {
	mustRegister := func(spec FunctionSpec, handler Handler) {
		if err := r.Register(spec, handler); err != nil {
			// Builtins are registered from static specs; a failure here is a
			// programming error, not an input problem.
			panic(err)
		}
	}

	mustRegister(FunctionSpec{
		Name:             "uuid",
		Description:      "Generates a fresh random UUID on every invocation",
		NonDeterministic: true,
	}, func(_ []string, _ *variable.RequestContext) (string, error) {
		return uuid.NewString(), nil
	})

	mustRegister(FunctionSpec{
		Name:             "timestamp",
		Description:      "Current Unix time in milliseconds",
		NonDeterministic: true,
	}, func(_ []string, req *variable.RequestContext) (string, error) {
		return strconv.FormatInt(builtinNow(req).UnixMilli(), 10), nil
	})

	mustRegister(FunctionSpec{
		Name:             "unix",
		Description:      "Current Unix time in seconds",
		NonDeterministic: true,
	}, func(_ []string, req *variable.RequestContext) (string, error) {
		return strconv.FormatInt(builtinNow(req).Unix(), 10), nil
	})

	mustRegister(FunctionSpec{
		Name:             "iso_date",
		Description:      "Current time as an ISO-8601 string",
		NonDeterministic: true,
	}, func(_ []string, req *variable.RequestContext) (string, error) {
		return builtinNow(req).UTC().Format(time.RFC3339), nil
	})

	mustRegister(FunctionSpec{
		Name:             "date",
		Description:      "Current time formatted with YYYY/MM/DD/HH/mm/ss tokens",
		NonDeterministic: true,
		Parameters: []ParameterSpec{
			{Name: "format", Type: "string", Required: false, Description: "Format string, defaults to YYYY-MM-DD"},
		},
	}, func(args []string, req *variable.RequestContext) (string, error) {
		format := "YYYY-MM-DD"
		if len(args) == 1 {
			format = args[0]
		}
		return builtinNow(req).Format(dateLayout(format)), nil
	})

	mustRegister(FunctionSpec{
		Name:             "random",
		Description:      "Random integer in [min, max] inclusive",
		NonDeterministic: true,
		Parameters: []ParameterSpec{
			{Name: "min", Type: "number", Required: true},
			{Name: "max", Type: "number", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		min, err := strconv.Atoi(args[0])
		if err != nil {
			return "", fmt.Errorf("%w: random min %q is not an integer", ErrInvalidArguments, args[0])
		}
		max, err := strconv.Atoi(args[1])
		if err != nil {
			return "", fmt.Errorf("%w: random max %q is not an integer", ErrInvalidArguments, args[1])
		}
		if min > max {
			return "", fmt.Errorf("%w: random min %d exceeds max %d", ErrInvalidArguments, min, max)
		}
		return strconv.Itoa(min + rand.Intn(max-min+1)), nil
	})

	mustRegister(FunctionSpec{
		Name:        "upper",
		Description: "Uppercases a string",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		return strings.ToUpper(args[0]), nil
	})

	mustRegister(FunctionSpec{
		Name:        "lower",
		Description: "Lowercases a string",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		return strings.ToLower(args[0]), nil
	})

	mustRegister(FunctionSpec{
		Name:        "trim",
		Description: "Trims surrounding whitespace",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		return strings.TrimSpace(args[0]), nil
	})

	mustRegister(FunctionSpec{
		Name:        "substring",
		Description: "Slice of a string by rune index, end defaults to the string length",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
			{Name: "start", Type: "number", Required: true},
			{Name: "end", Type: "number", Required: false},
		},
	}, builtinSubstring)

	mustRegister(FunctionSpec{
		Name:        "replace",
		Description: "Replaces every occurrence of a substring",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
			{Name: "old", Type: "string", Required: true},
			{Name: "new", Type: "string", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		return strings.ReplaceAll(args[0], args[1], args[2]), nil
	})

	mustRegister(FunctionSpec{
		Name:        "base64",
		Description: "Base64-encodes a string",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		return base64.StdEncoding.EncodeToString([]byte(args[0])), nil
	})

	mustRegister(FunctionSpec{
		Name:        "url_encode",
		Description: "Percent-encodes a string for use in a query component",
		Parameters: []ParameterSpec{
			{Name: "value", Type: "string", Required: true},
		},
	}, func(args []string, _ *variable.RequestContext) (string, error) {
		return url.QueryEscape(args[0]), nil
	})

	mustRegister(FunctionSpec{
		Name:        "domain",
		Description: "Hostname of the current request",
	}, requestAccessor(func(req *variable.RequestContext) string { return req.Domain }))

	mustRegister(FunctionSpec{
		Name:        "path",
		Description: "Path of the current request URL",
	}, requestAccessor(func(req *variable.RequestContext) string { return req.Path }))

	mustRegister(FunctionSpec{
		Name:        "method",
		Description: "HTTP method of the current request",
	}, requestAccessor(func(req *variable.RequestContext) string { return req.Method }))

	mustRegister(FunctionSpec{
		Name:        "protocol",
		Description: "Scheme of the current request URL",
	}, requestAccessor(func(req *variable.RequestContext) string { return req.Protocol }))

	mustRegister(FunctionSpec{
		Name:        "url",
		Description: "Full URL of the current request",
	}, requestAccessor(func(req *variable.RequestContext) string { return req.URL }))

	mustRegister(FunctionSpec{
		Name:        "query",
		Description: "Value of a query parameter on the current request, empty if absent",
		Parameters: []ParameterSpec{
			{Name: "name", Type: "string", Required: true},
		},
	}, func(args []string, req *variable.RequestContext) (string, error) {
		if req == nil {
			return "", fmt.Errorf("%w: query() requires a request context", ErrInvalidArguments)
		}
		return req.Query[args[0]], nil
	})

	mustRegister(FunctionSpec{
		Name:        "header",
		Description: "Value of a header on the current request, empty if absent",
		Parameters: []ParameterSpec{
			{Name: "name", Type: "string", Required: true},
		},
	}, func(args []string, req *variable.RequestContext) (string, error) {
		if req == nil {
			return "", fmt.Errorf("%w: header() requires a request context", ErrInvalidArguments)
		}
		for name, value := range req.Headers {
			if strings.EqualFold(name, args[0]) {
				return value, nil
			}
		}
		return "", nil
	})
}

// dateLayout translates YYYY/MM/DD style tokens into a Go time layout.
// Unrecognized characters pass through verbatim.
func dateLayout(format string) string {
	var layout strings.Builder
	i := 0
	for i < len(format) {
		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				layout.WriteString(t.layout)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			layout.WriteByte(format[i])
			i++
		}
	}
	return layout.String()
}

// builtinNow prefers the request's interception timestamp so all time-based
// functions within one resolution observe the same instant.
func builtinNow(req *variable.RequestContext) time.Time {
	if req != nil && !req.Timestamp.IsZero() {
		return req.Timestamp
	}
	return time.Now()
}

// requestAccessor adapts a field getter into a Handler that fails cleanly
// when no request context was supplied.
func requestAccessor(get func(*variable.RequestContext) string) Handler {
	return func(_ []string, req *variable.RequestContext) (string, error) {
		if req == nil {
			return "", fmt.Errorf("%w: function requires a request context", ErrInvalidArguments)
		}
		return get(req), nil
	}
}

func builtinSubstring(args []string, _ *variable.RequestContext) (string, error) {
	runes := []rune(args[0])

	start, err := strconv.Atoi(args[1])
	if err != nil {
		return "", fmt.Errorf("%w: substring start %q is not an integer", ErrInvalidArguments, args[1])
	}

	end := len(runes)
	if len(args) == 3 {
		end, err = strconv.Atoi(args[2])
		if err != nil {
			return "", fmt.Errorf("%w: substring end %q is not an integer", ErrInvalidArguments, args[2])
		}
	}

	// Clamp out-of-range indices rather than failing.
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}
	if start >= end {
		return "", nil
	}
	return string(runes[start:end]), nil
}
