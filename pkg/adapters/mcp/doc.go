// Package mcp exposes the operator tools (report, user lookup, broadcast)
// and the loaded script over the Model Context Protocol.
package mcp
