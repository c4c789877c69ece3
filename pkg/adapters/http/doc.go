// Package http exposes the conversation and operator services over JSON HTTP
// and delivers outbound messages to a chat gateway webhook.
package http
