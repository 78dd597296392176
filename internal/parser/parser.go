// Package parser turns exported transcript text into messages. Parsing is
// heuristic by design: the line format varies by locale, so the parser
// anchors on the structural elements (bracketed timestamp with a four-digit
// year, sender, colon) and takes everything else verbatim. It is a pure
// function over file contents with no filesystem access, so the dependency
// and regeneration logic stays decoupled from parsing heuristics.
package parser

import (
	"fmt"
	"strings"

	"wab-go/internal/model"
)

// ParseError reports a transcript that could not be interpreted. The caller
// treats it as recoverable: the file contributes no messages this run.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transcript parse failed: %s", e.Reason)
}

// Parser implements transcript parsing. It is stateless and safe for
// concurrent use.
type Parser struct{}

// New returns a transcript parser.
func New() *Parser { return &Parser{} }

// Parse interprets the contents of one transcript file. The first parseable
// line names the chat (its sender is the chat display name); if the first
// line does not match the chat line format the file is rejected with a
// ParseError. Lines that do not match the format continue the previous
// message's content. The source ID is stamped onto every message.
func (p *Parser) Parse(data []byte, source model.FileID) (*model.Transcript, error) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return nil, &ParseError{Reason: "file is empty"}
	}

	first := parseChatLine(lines[0])
	if first == nil {
		return nil, &ParseError{Reason: "first line does not look like a chat line"}
	}

	tr := &model.Transcript{ChatName: first.sender}

	current := first
	contentLines := []string{first.content}

	finalize := func() {
		current.content = strings.Join(contentLines, "\n")
		tr.Messages = append(tr.Messages, current.toMessage(source))
	}

	for _, line := range lines[1:] {
		next := parseChatLine(line)
		if next != nil {
			finalize()
			current = next
			contentLines = []string{next.content}
		} else {
			contentLines = append(contentLines, line)
		}
	}
	finalize()

	return tr, nil
}

func splitLines(data []byte) []string {
	s := string(data)
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}
