package transcript

import (
	"regexp"
	"strings"
)

// timestampPattern matches the "[hh:mm] " prefix the platform puts on every
// exported line.
var timestampPattern = regexp.MustCompile(`^\[\d{1,2}:\d{2}(?::\d{2})?\]\s*`)

// StripTimestamp removes a leading bracketed timestamp.
func StripTimestamp(line string) string {
	return timestampPattern.ReplaceAllString(line, "")
}

// StripControl removes ANSI escape sequences and other control characters
// that show up when a transcript is copied out of a terminal. Tabs become
// spaces and non-breaking spaces become plain spaces.
func StripControl(text string) string {
	var result strings.Builder
	state := 0 // 0=normal, 1=saw_esc, 2=in_sequence

	for _, char := range text {
		switch state {
		case 0:
			switch {
			case char == '\x1b':
				state = 1
			case char == '\t' || char == '\u00a0':
				result.WriteRune(' ')
			case char < 0x20 || char == 0x7f:
				// drop
			default:
				result.WriteRune(char)
			}

		case 1:
			if char == '[' {
				state = 2
			} else {
				// Lone escape: drop it, keep the character
				state = 0
				if char >= 0x20 {
					result.WriteRune(char)
				}
			}

		case 2:
			// Final byte of a CSI sequence
			if char >= 0x40 && char <= 0x7e {
				state = 0
			}
		}
	}

	return result.String()
}

// NormalizeLine prepares one raw transcript line for classification.
func NormalizeLine(line string) string {
	line = StripControl(line)
	line = StripTimestamp(strings.TrimSpace(line))
	return strings.TrimSpace(line)
}
