package transcript

import (
	"regexp"
	"strconv"
	"time"
)

var (
	userMentionPattern    = regexp.MustCompile(`<@!?(\d+)>`)
	roleMentionPattern    = regexp.MustCompile(`<@&\d+>`)
	channelMentionPattern = regexp.MustCompile(`<#\d+>`)
	customEmojiPattern    = regexp.MustCompile(`<a?:(\w+):\d+>`)
	timestampPattern      = regexp.MustCompile(`<t:(\d+)(?::[tTdDfFR])?>`)
)

const unknownUser = "@unknown-user"

// NormalizeMentions rewrites platform markup into plain display text.
// names maps user refs to display names.
func NormalizeMentions(content string, names map[string]string) string {
	content = userMentionPattern.ReplaceAllStringFunc(content, func(match string) string {
		id := userMentionPattern.FindStringSubmatch(match)[1]
		if name, ok := names[id]; ok && name != "" {
			return "@" + name
		}
		return unknownUser
	})
	content = roleMentionPattern.ReplaceAllString(content, "@role")
	content = channelMentionPattern.ReplaceAllString(content, "#channel")
	content = customEmojiPattern.ReplaceAllString(content, ":$1:")
	content = timestampPattern.ReplaceAllStringFunc(content, func(match string) string {
		secs, err := strconv.ParseInt(timestampPattern.FindStringSubmatch(match)[1], 10, 64)
		if err != nil {
			return match
		}
		return time.Unix(secs, 0).UTC().Format(time.RFC3339)
	})
	return content
}
