package telegram

import (
	"github.com/gotd/td/telegram/message/styling"

	"tracker/pkg/tracker"
)

// styledText maps entry spans onto gotd message entities. Plain spans are
// sent verbatim, including any markdown-looking characters.
func styledText(e tracker.Entry) []styling.StyledTextOption {
	opts := make([]styling.StyledTextOption, 0, len(e))
	for _, s := range e {
		if s.Text == "" {
			continue
		}
		if s.Bold {
			opts = append(opts, styling.Bold(s.Text))
		} else {
			opts = append(opts, styling.Plain(s.Text))
		}
	}
	return opts
}
