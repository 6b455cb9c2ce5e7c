// Package server provides the webhook HTTP front end.
//
// Telegram posts updates to /{token}/. Each update is converted and
// queued for the engine; the handler answers immediately so Telegram
// never waits on image processing.
package server
