package slack

import (
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/taskboard/internal/messenger"
)

// ActivityText renders a one-line summary, used as the notification fallback.
func ActivityText(a messenger.Activity) string {
	if a.Title == "" {
		return fmt.Sprintf("Task #%d %s in project #%d", a.TaskID, a.Action, a.ProjectID)
	}
	return fmt.Sprintf("Task #%d %q %s in project #%d", a.TaskID, a.Title, a.Action, a.ProjectID)
}

// BuildActivityBlocks builds Slack Block Kit blocks for a task activity entry.
// Deleted tasks carry no status, so only the header section is emitted.
func BuildActivityBlocks(a messenger.Activity) []slacklib.Block {
	header := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, "*"+ActivityText(a)+"*", false, false),
		nil,
		nil,
	)
	if a.Status == "" {
		return []slacklib.Block{header}
	}

	fields := []*slacklib.TextBlockObject{
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Status:* `%s`", a.Status), false, false),
	}
	if a.Priority != "" {
		fields = append(fields, slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Priority:* `%s`", a.Priority), false, false))
	}
	details := slacklib.NewSectionBlock(nil, fields, nil)

	return []slacklib.Block{header, details}
}
