// Package logger wraps zap with a global sugared console logger and context helpers.
//
// Services receive a context, name their logger with WithName and log through the
// package-level helpers (Info, InfoKV, WarnKV, ...), so every message carries the
// component chain that produced it.
package logger
