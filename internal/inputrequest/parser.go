// Package inputrequest detects and decodes the [INPUT_REQUIRED] marker
// block that tools emit into pane output to request operator input.
package inputrequest

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/Eren-Nevin/tmux-observer/internal/logging"
	"github.com/Eren-Nevin/tmux-observer/internal/registry"
)

var parserLog = logging.ForComponent(logging.CompInput)

// Marker is the literal line searched for, tail-first.
const Marker = "[INPUT_REQUIRED]"

const maxBlockLines = 20

var (
	typePattern    = regexp.MustCompile(`(?i)^TYPE:\s*(text|choice|confirm)\s*$`)
	promptPattern  = regexp.MustCompile(`(?i)^PROMPT:\s*(.*)$`)
	messagePattern = regexp.MustCompile(`(?i)^MESSAGE:\s*(.*)$`)
	optionsPattern = regexp.MustCompile(`(?i)^OPTIONS:\s*$`)
	optionLine     = regexp.MustCompile(`^\s*\d+\)\s*(.+)$`)
)

// HasMarker is a cheap tail-first substring scan, used to decide when an
// existing request should be cleared.
func HasMarker(lines []string) bool {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], Marker) {
			return true
		}
	}
	return false
}

// Parse scans lines for the most recent [INPUT_REQUIRED] block and decodes
// it into a registry.InputRequest. Returns (nil, false) if no request is
// present or the block cannot be classified.
func Parse(lines []string) (*registry.InputRequest, bool) {
	idx := findMarkerIndex(lines)
	if idx < 0 {
		return nil, false
	}
	block := extractBlock(lines, idx)
	return parseBlock(block)
}

// findMarkerIndex returns the index of the most recent marker line, or -1.
func findMarkerIndex(lines []string) int {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], Marker) {
			return i
		}
	}
	return -1
}

// extractBlock reads up to maxBlockLines starting after the marker line,
// stopping at the first blank line seen after any non-blank content.
func extractBlock(lines []string, markerIdx int) []string {
	var block []string
	seenContent := false
	end := markerIdx + 1 + maxBlockLines
	if end > len(lines) {
		end = len(lines)
	}
	for i := markerIdx + 1; i < end; i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			if seenContent {
				break
			}
			continue
		}
		seenContent = true
		block = append(block, line)
	}
	return block
}

func parseBlock(block []string) (*registry.InputRequest, bool) {
	var (
		inputType registry.InputType
		prompt    string
		message   string
		options   []string
		typeSeen  bool
	)

	i := 0
	for i < len(block) {
		line := block[i]

		if m := typePattern.FindStringSubmatch(line); m != nil {
			inputType = registry.InputType(strings.ToLower(m[1]))
			typeSeen = true
			i++
			continue
		}
		if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(line)), "TYPE:") {
			// Recognized keyword, unrecognized value.
			parserLog.Warn("unrecognized_input_type", slog.String("line", line))
			i++
			continue
		}
		if m := promptPattern.FindStringSubmatch(line); m != nil {
			prompt = m[1]
			i++
			continue
		}
		if m := messagePattern.FindStringSubmatch(line); m != nil {
			message = m[1]
			i++
			continue
		}
		if optionsPattern.MatchString(line) {
			i++
			for i < len(block) {
				om := optionLine.FindStringSubmatch(block[i])
				if om == nil {
					break
				}
				options = append(options, om[1])
				i++
			}
			continue
		}
		i++
	}

	if !typeSeen {
		switch {
		case len(options) > 0:
			inputType = registry.InputChoice
		case message != "":
			inputType = registry.InputConfirm
		case prompt != "":
			inputType = registry.InputText
		default:
			return nil, false
		}
	}

	if inputType != registry.InputText && inputType != registry.InputChoice && inputType != registry.InputConfirm {
		return nil, false
	}

	return &registry.InputRequest{
		InputType: inputType,
		Prompt:    prompt,
		Message:   message,
		Options:   options,
	}, true
}
