// Package mcp exposes bridge actions as Model Context Protocol tools.
//
// Each tool forwards its arguments as the payload of one bridge request.
// Streaming chunks are collected into the tool's text output and the
// terminal response is returned as structured content. A ToolServer can be
// called programmatically or served over any MCP transport through the
// official SDK server.
package mcp
