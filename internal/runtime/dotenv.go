// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadEnvFileFromCwd loads a dotenv file relative to the working directory
// and merges its contents into the provided env map. Files suffixed with '?'
// are optional; a missing optional file is not an error. When cwd is empty,
// os.Getwd() is used. Later calls override earlier values for the same keys.
func LoadEnvFileFromCwd(env map[string]string, path, cwd string) error {
	optional := strings.HasSuffix(path, "?")
	if optional {
		path = strings.TrimSuffix(path, "?")
	}

	var fullPath string
	if filepath.IsAbs(path) {
		fullPath = path
	} else {
		if cwd == "" {
			var err error
			cwd, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current working directory: %w", err)
			}
		}
		fullPath = filepath.Join(cwd, path)
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil // Optional file missing is OK
		}
		return fmt.Errorf("failed to read env file '%s': %w", path, err)
	}

	return ParseEnvFile(env, content, path)
}

// ParseEnvFile parses dotenv format content and merges into the env map.
// Supported format:
//   - Lines starting with # are comments
//   - Empty lines are ignored
//   - KEY=value (unquoted; inline " #" comments stripped)
//   - KEY="value" (double-quoted, escape sequences: \n, \r, \t, \\, \", \$)
//   - KEY='value' (single-quoted, literal - no escape processing)
//   - export KEY=value (export prefix is optional and ignored)
//   - KEY= (empty value)
//
// The filename parameter is used for error messages.
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	lines := strings.Split(string(content), "\n")

	for i, line := range lines {
		lineNum := i + 1

		line = strings.TrimSuffix(line, "\r")
		line = strings.TrimSpace(line)

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = strings.TrimPrefix(line, "export ")
		line = strings.TrimSpace(line)

		key, value, found := strings.Cut(line, "=")
		if !found {
			return fmt.Errorf("%s:%d: invalid format (missing '=')", filename, lineNum)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("%s:%d: empty variable name", filename, lineNum)
		}

		parsedValue, err := parseEnvValue(value)
		if err != nil {
			return fmt.Errorf("%s:%d: %w", filename, lineNum, err)
		}

		env[key] = parsedValue
	}

	return nil
}

// parseEnvValue parses a dotenv value, handling quoting and escape sequences.
func parseEnvValue(value string) (string, error) {
	value = strings.TrimSpace(value)

	if value == "" {
		return "", nil
	}

	if value[0] == '"' {
		if len(value) < 2 || value[len(value)-1] != '"' {
			return "", fmt.Errorf("unterminated double quote")
		}
		return parseDoubleQuotedValue(value[1 : len(value)-1]), nil
	}
	if value[0] == '\'' {
		if len(value) < 2 || value[len(value)-1] != '\'' {
			return "", fmt.Errorf("unterminated single quote")
		}
		// Single-quoted: literal value, no escape processing
		return value[1 : len(value)-1], nil
	}

	// Unquoted: strip inline comments
	if idx := strings.Index(value, " #"); idx != -1 {
		value = strings.TrimSpace(value[:idx])
	}

	return value, nil
}

// parseDoubleQuotedValue processes escape sequences in a double-quoted value.
func parseDoubleQuotedValue(value string) string {
	var result strings.Builder
	result.Grow(len(value))

	i := 0
	for i < len(value) {
		if value[i] == '\\' && i+1 < len(value) {
			switch next := value[i+1]; next {
			case 'n':
				result.WriteByte('\n')
			case 'r':
				result.WriteByte('\r')
			case 't':
				result.WriteByte('\t')
			case '\\':
				result.WriteByte('\\')
			case '"':
				result.WriteByte('"')
			case '$':
				result.WriteByte('$')
			default:
				// Unknown escape - keep both characters
				result.WriteByte('\\')
				result.WriteByte(next)
			}
			i += 2
			continue
		}
		result.WriteByte(value[i])
		i++
	}

	return result.String()
}
