// Package validation provides input checks for values that end up on a
// command line or in a filesystem path, preventing command injection through
// configuration.
package validation

import (
	"fmt"
	"strings"
)

var shellMetacharacters = []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\\", "\"", "'"}

// ValidateArgument validates a command line argument to prevent injection attacks
func ValidateArgument(arg string) error {
	if strings.ContainsRune(arg, 0) {
		return fmt.Errorf("contains null byte")
	}

	for _, char := range shellMetacharacters {
		if strings.Contains(arg, char) {
			return fmt.Errorf("contains dangerous character: %s", char)
		}
	}

	return nil
}

// ValidateCommandLine validates every word of a command line. The first word
// is the program and may not be a placeholder.
func ValidateCommandLine(words []string) error {
	if len(words) == 0 {
		return fmt.Errorf("command cannot be empty")
	}
	if strings.HasPrefix(words[0], "{") {
		return fmt.Errorf("program name cannot be a placeholder: %s", words[0])
	}

	for _, w := range words {
		if err := ValidateArgument(w); err != nil {
			return fmt.Errorf("invalid argument '%s': %w", w, err)
		}
	}

	return nil
}

// ValidatePath validates a configured file path.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains null byte")
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "<", ">"}
	for _, char := range dangerousChars {
		if strings.Contains(path, char) {
			return fmt.Errorf("path contains dangerous character: %s", char)
		}
	}

	return nil
}
