package engine

import "regexp"

// goEngine is the native binding, backed by the Go regexp package.
type goEngine struct{}

// Default returns the native Go regexp engine.
func Default() Engine {
	return goEngine{}
}

func (goEngine) Compile(pattern string, flags Flags) (Handle, error) {
	re, err := regexp.Compile(flagPrefix(flags) + pattern)
	if err != nil {
		return nil, &CompileError{Pattern: pattern, Diagnostic: err.Error()}
	}
	return goHandle{re: re}, nil
}

func flagPrefix(flags Flags) string {
	mode := ""
	if flags.CaseInsensitive {
		mode += "i"
	}
	if flags.Multiline {
		mode += "m"
	}
	if mode == "" {
		return ""
	}
	return "(?" + mode + ")"
}

type goHandle struct {
	re *regexp.Regexp
}

func (h goHandle) Matches(input string) bool {
	return h.re.MatchString(input)
}
