package pipeline

import (
	"strings"

	"github.com/ppiankov/slant/internal/model"
)

// Input is one document to scan
type Input struct {
	ID       string           // Caller-supplied identifier, optional
	Kind     model.SourceKind // text, file or url
	Location string           // Path or URL
	Text     string           // Literal text for text inputs
}

// TextInput wraps literal text
func TextInput(text string) Input {
	return Input{Kind: model.SourceText, Text: text}
}

// FileInput reads the document at path
func FileInput(path string) Input {
	return Input{Kind: model.SourceFile, Location: path}
}

// URLInput fetches the document at rawURL
func URLInput(rawURL string) Input {
	return Input{Kind: model.SourceURL, Location: rawURL}
}

// ParseInput classifies one batch line: http(s) URLs are fetched, "@path"
// reads a file and anything else is literal text.
func ParseInput(line string) Input {
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)
	switch {
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return URLInput(line)
	case strings.HasPrefix(line, "@") && len(line) > 1:
		return FileInput(line[1:])
	default:
		return TextInput(line)
	}
}

// Label is a short human-readable name for progress output
func (in Input) Label() string {
	if in.ID != "" {
		return in.ID
	}
	if in.Kind == model.SourceText {
		return model.SubjectFromText(in.Text, 40)
	}
	return in.Location
}
