// Package telegram is a small Bot API client and the bot transport built
// on it.
//
// Only the methods the bot needs are covered: webhook management, file
// download, sendMessage and sendPhoto. Calls are retried with exponential
// backoff on network errors, 429 and 5xx responses.
package telegram
