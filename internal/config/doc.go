// Package config loads polybot settings.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML
// file, an optional .env file, the process environment, and command-line
// flags bound by the caller. Environment variables use the POLYBOT_
// prefix with dots replaced by underscores (POLYBOT_SESSION_BACKEND).
// TELEGRAM_TOKEN and TELEGRAM_APP_URL are also honored for deployments
// that predate the prefix.
package config
