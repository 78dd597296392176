package parser

import (
	"regexp"
	"strconv"
	"strings"

	"wab-go/internal/model"
)

// chatLineRE matches one chat line: an optional left-to-right mark, a
// bracketed timestamp that must contain a four-digit year between 1900 and
// 2099 (captured separately, the timestamp itself is taken verbatim), then
// the sender — optionally wrapped in "~ " — a colon, and the content. Lines
// with an out-of-range year never match and therefore fold into the previous
// message's content instead of becoming messages.
//
// The original heuristic stripped the trailing half of the tilde wrap with a
// backreference; RE2 has no backreferences, so that is done in code below.
var chatLineRE = regexp.MustCompile(
	`^\x{200E}?\[([^\]]*?((?:19|20)[0-9]{2})[^\]]*?)\]\s(~\s)?([^:]+):\s\x{200E}?(.*)$`,
)

// mediaRE detects a media attachment reference such as
// "<attached: photo.jpg>". The prefix word is localized, so the pattern
// accepts one to three short words of letters before the colon. Not perfect —
// a user could type something similar — but generic enough to catch most
// locales without a database of every localization.
var mediaRE = regexp.MustCompile(`<(?:\p{L}{1,20}\s?){1,3}: (.*?)>`)

// rawLine is one parsed chat line header; its content may later be extended
// by continuation lines.
type rawLine struct {
	timestamp string
	year      int
	sender    string
	tilde     string // the matched tilde wrap, empty if absent
	content   string
}

func parseChatLine(line string) *rawLine {
	m := chatLineRE.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return nil
	}
	content := m[5]
	if m[3] != "" {
		// Sender was tilde-wrapped; the wrap may repeat before the content.
		content = strings.TrimPrefix(content, m[3])
	}
	return &rawLine{
		timestamp: m[1],
		year:      year,
		sender:    strings.TrimSpace(m[4]),
		tilde:     m[3],
		content:   content,
	}
}

// toMessage converts a finalized raw line into a message, detecting media
// references. A media reference replaces the content with an empty string and
// records the referenced base name; resolution to an actual file happens
// later against the VFS.
func (r *rawLine) toMessage(source model.FileID) *model.Message {
	content := r.content
	mediaName := ""
	if m := mediaRE.FindStringSubmatch(content); m != nil {
		mediaName = m[1]
		content = ""
	}
	return &model.Message{
		Timestamp: r.timestamp,
		Sender:    r.sender,
		Content:   content,
		Year:      r.year,
		Source:    source,
		MediaName: mediaName,
	}
}
