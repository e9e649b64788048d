package server

import "strings"

// Config contains the SSE binding's listen address, routes, and optional
// bearer token.
type Config struct {
	Host     string
	Port     string
	SSEPath  string
	Endpoint string
	Token    string
}

func (c *Config) applyDefaults() {
	if c.SSEPath == "" {
		c.SSEPath = "/sse"
	}
	if c.Endpoint == "" {
		c.Endpoint = "/messages"
	}
	if c.Port == "" {
		c.Port = "8000"
	}
	if !strings.HasPrefix(c.SSEPath, "/") {
		c.SSEPath = "/" + c.SSEPath
	}
	if !strings.HasPrefix(c.Endpoint, "/") {
		c.Endpoint = "/" + c.Endpoint
	}
}
