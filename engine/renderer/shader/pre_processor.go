// pre_processor.go implements the WGSL define pre-processor that turns one shader source into
// per-material variants.
//
// Directives occupy a whole line (leading whitespace allowed):
//   - #ifdef NAME / #ifndef NAME open a conditional block on whether NAME is defined
//   - #else flips the innermost block
//   - #endif closes it
//   - #define NAME VALUE defines NAME for the remainder of the source
//
// Outside of directives, every ${NAME} token on an active line is replaced with the value of NAME.
// Referencing an undefined name is an error, as are unbalanced or misplaced directives.
package shader

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

var substitutionRegex = regexp.MustCompile(`\$\{(\w+)\}`)

// PreProcessor expands define directives in WGSL source.
type PreProcessor interface {
	// Process resolves conditional blocks and ${NAME} substitutions against defines.
	//
	// Parameters:
	//   - source: the WGSL source containing directives
	//   - defines: the define values; a name is defined when it is present as a key
	//
	// Returns:
	//   - string: the expanded WGSL source with all directive lines removed
	//   - error: an error wrapping common.ErrConfiguration on a malformed directive or undefined substitution
	Process(source string, defines map[string]string) (string, error)
}

type preProcessor struct{}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor.
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

// conditional is one open #ifdef/#ifndef block.
type conditional struct {
	line      int
	taken     bool
	sawElse   bool
	parentsOn bool
}

func (c conditional) active() bool {
	return c.parentsOn && c.taken
}

func (p *preProcessor) Process(source string, defines map[string]string) (string, error) {
	local := make(map[string]string, len(defines))
	for k, v := range defines {
		local[k] = v
	}

	var stack []conditional
	active := func() bool {
		if len(stack) == 0 {
			return true
		}
		return stack[len(stack)-1].active()
	}

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		lineNum := i + 1
		directive, arg, isDirective := splitDirective(line)
		if !isDirective {
			if !active() {
				continue
			}
			expanded, err := substitute(line, local, lineNum)
			if err != nil {
				return "", err
			}
			out = append(out, expanded)
			continue
		}

		switch directive {
		case "#ifdef", "#ifndef":
			if arg == "" {
				return "", fmt.Errorf("%w: line %d: %s requires a name", common.ErrConfiguration, lineNum, directive)
			}
			_, defined := local[arg]
			stack = append(stack, conditional{
				line:      lineNum,
				taken:     defined == (directive == "#ifdef"),
				parentsOn: active(),
			})
		case "#else":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: line %d: #else without #ifdef", common.ErrConfiguration, lineNum)
			}
			top := &stack[len(stack)-1]
			if top.sawElse {
				return "", fmt.Errorf("%w: line %d: duplicate #else for block opened on line %d", common.ErrConfiguration, lineNum, top.line)
			}
			top.sawElse = true
			top.taken = !top.taken
		case "#endif":
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: line %d: #endif without #ifdef", common.ErrConfiguration, lineNum)
			}
			stack = stack[:len(stack)-1]
		case "#define":
			if !active() {
				continue
			}
			name, value, _ := strings.Cut(arg, " ")
			if name == "" {
				return "", fmt.Errorf("%w: line %d: #define requires a name", common.ErrConfiguration, lineNum)
			}
			local[name] = strings.TrimSpace(value)
		default:
			return "", fmt.Errorf("%w: line %d: unknown directive %q", common.ErrConfiguration, lineNum, directive)
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("%w: block opened on line %d is missing #endif", common.ErrConfiguration, stack[len(stack)-1].line)
	}
	return strings.Join(out, "\n"), nil
}

// splitDirective reports whether line is a pre-processor directive and splits it into the
// directive keyword and its trimmed argument.
func splitDirective(line string) (directive, arg string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	directive, arg, _ = strings.Cut(trimmed, " ")
	return directive, strings.TrimSpace(arg), true
}

func substitute(line string, defines map[string]string, lineNum int) (string, error) {
	var missing string
	expanded := substitutionRegex.ReplaceAllStringFunc(line, func(token string) string {
		name := token[2 : len(token)-1]
		value, ok := defines[name]
		if !ok && missing == "" {
			missing = name
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("%w: line %d: undefined substitution ${%s}", common.ErrConfiguration, lineNum, missing)
	}
	return expanded, nil
}
