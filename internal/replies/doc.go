// Package replies renders the bot's user-facing messages from a table of
// MarkdownV2 templates.
//
// Templates live in replies.jsonc, grouped by category. Substituted values
// are escaped for MarkdownV2 unless they are already Markdown, so a rendered
// message can be nested inside another template without double escaping.
package replies
