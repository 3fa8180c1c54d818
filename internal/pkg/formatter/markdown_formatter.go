package formatter

import (
	"bytes"
	"fmt"

	"github.com/askfolio/chat-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"

	turnTimeLayout = "2006-01-02 15:04"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(turns []entity.ConversationTurn) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", baseTitle)

	for _, turn := range turns {
		fmt.Fprintf(&buf, "\n## %s\n\n", turn.Timestamp.Format(turnTimeLayout))
		fmt.Fprintf(&buf, "**You:** %s\n\n", turn.User)
		fmt.Fprintf(&buf, "**Assistant:** %s\n", turn.Assistant)
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
