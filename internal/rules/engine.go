package rules

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Engine applies deterministic text substitutions: built-in rules that
// strip chat markup before synthesis, optionally followed by
// user-provided pronunciation rules loaded from a file.
type Engine struct {
	rules     []rule
	loopLimit int
}

type rule interface {
	Apply(input string) (output string, changed bool)
}

// builtinRules remove markup a voice should never read aloud.
var builtinRules = []string{
	`s/\*//g`,
	`s/__//g`,
	"s/`//g",
	`s/^#+\s*//gm`,
}

// NewEngine compiles the built-in markup rules plus, when path names an
// existing file, the pronunciation rules it contains. A missing or empty
// path yields an engine with the built-ins only.
func NewEngine(path string, loopLimit int) (*Engine, error) {
	if loopLimit <= 0 {
		loopLimit = 30
	}

	compiled, err := parseRules(strings.Join(builtinRules, "\n"))
	if err != nil {
		return nil, fmt.Errorf("failed to compile builtin rules: %w", err)
	}

	if strings.TrimSpace(path) != "" {
		contents, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read rules file %q: %w", path, err)
		}
		if err == nil {
			userRules, err := parseRules(string(contents))
			if err != nil {
				return nil, fmt.Errorf("failed to parse rules file %q: %w", path, err)
			}
			compiled = append(compiled, userRules...)
		}
	}

	return &Engine{rules: compiled, loopLimit: loopLimit}, nil
}

// Apply transforms text deterministically, iterating until stable or the
// loop limit is reached.
func (e *Engine) Apply(text string) (string, error) {
	if len(e.rules) == 0 {
		return text, nil
	}

	result := text
	for i := 0; i < e.loopLimit; i++ {
		changed := false
		for _, r := range e.rules {
			next, ruleChanged := r.Apply(result)
			if ruleChanged {
				result = next
				changed = true
			}
		}
		if !changed {
			return result, nil
		}
	}

	return result, nil
}

func parseRules(contents string) ([]rule, error) {
	lines := strings.Split(contents, "\n")
	rules := make([]rule, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var parsed rule
		var err error
		switch {
		case looksLikeRegexRule(line):
			parsed, err = parseRegexRule(line)
		case strings.Contains(line, "=>"):
			parsed, err = parseLiteralRule(line)
		default:
			err = errors.New("unsupported rule format")
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", index+1, err)
		}
		rules = append(rules, parsed)
	}

	return rules, nil
}

type literalRule struct {
	replacement string
	re          *regexp.Regexp
}

func parseLiteralRule(line string) (rule, error) {
	parts := strings.SplitN(line, "=>", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid literal rule")
	}
	from := strings.TrimSpace(parts[0])
	to := strings.TrimSpace(parts[1])
	if from == "" {
		return nil, errors.New("literal rule source cannot be empty")
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(from))
	if err != nil {
		return nil, fmt.Errorf("invalid literal source: %w", err)
	}

	return literalRule{replacement: to, re: re}, nil
}

func (r literalRule) Apply(input string) (string, bool) {
	output := r.re.ReplaceAllString(input, r.replacement)
	return output, output != input
}

type regexRule struct {
	re          *regexp.Regexp
	replacement string
	global      bool
}

func parseRegexRule(line string) (rule, error) {
	if len(line) < 2 {
		return nil, errors.New("invalid regex rule")
	}
	delim := line[1]
	if isAlphaNumericOrSpace(delim) {
		return nil, errors.New("regex delimiter must be non-alphanumeric")
	}

	pattern, pos, err := parseDelimited(line, 2, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}
	replacement, pos, err := parseDelimited(line, pos, delim)
	if err != nil {
		return nil, fmt.Errorf("invalid regex replacement: %w", err)
	}
	flags := strings.TrimSpace(line[pos:])

	ignoreCase := true
	global := false
	multiLine := false
	dotAll := false

	for _, flag := range flags {
		switch flag {
		case 'i':
			ignoreCase = true
		case 'g':
			global = true
		case 'm':
			multiLine = true
		case 's':
			dotAll = true
		case ' ':
			continue
		default:
			return nil, fmt.Errorf("unsupported regex flag %q", flag)
		}
	}

	prefixFlags := ""
	if ignoreCase {
		prefixFlags += "i"
	}
	if multiLine {
		prefixFlags += "m"
	}
	if dotAll {
		prefixFlags += "s"
	}
	if prefixFlags != "" {
		pattern = "(?" + prefixFlags + ")" + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex: %w", err)
	}

	return regexRule{re: re, replacement: replacement, global: global}, nil
}

func (r regexRule) Apply(input string) (string, bool) {
	if r.global {
		output := r.re.ReplaceAllString(input, r.replacement)
		return output, output != input
	}

	loc := r.re.FindStringIndex(input)
	if loc == nil {
		return input, false
	}

	segment := input[loc[0]:loc[1]]
	replaced := r.re.ReplaceAllString(segment, r.replacement)
	output := input[:loc[0]] + replaced + input[loc[1]:]
	return output, output != input
}

func parseDelimited(line string, start int, delim byte) (string, int, error) {
	if start >= len(line) {
		return "", 0, errors.New("unexpected end of expression")
	}

	var builder strings.Builder
	escaped := false
	for index := start; index < len(line); index++ {
		char := line[index]
		if escaped {
			builder.WriteByte(char)
			escaped = false
			continue
		}
		if char == '\\' {
			escaped = true
			builder.WriteByte(char)
			continue
		}
		if char == delim {
			return builder.String(), index + 1, nil
		}
		builder.WriteByte(char)
	}
	return "", 0, errors.New("unterminated expression")
}

func isAlphaNumericOrSpace(char byte) bool {
	return (char >= 'a' && char <= 'z') ||
		(char >= 'A' && char <= 'Z') ||
		(char >= '0' && char <= '9') ||
		char == ' ' || char == '\t'
}

func looksLikeRegexRule(line string) bool {
	return len(line) > 1 && line[0] == 's' && !isAlphaNumericOrSpace(line[1])
}
