package mcp

import "context"

// FetchURLTool builds the fetch_url registration backed by the given
// pipeline. The descriptor is identical across transports.
func FetchURLTool(p Pipeline) Registration {
	return Registration{
		Tool: Tool{
			Name:        "fetch_url",
			Description: "Fetch a web page and convert it to Markdown format",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"title":       "URL",
						"description": "The URL of the web page to fetch and convert to Markdown",
					},
				},
				"required": []string{"url"},
			},
		},
		Handler: func(ctx context.Context, args map[string]any) ToolResult {
			url, _ := args["url"].(string)
			if url == "" {
				return Failure("URL parameter is required")
			}
			markdown, err := p.FetchMarkdown(ctx, url)
			if err != nil {
				return Failure("Error fetching URL: " + err.Error())
			}
			return Success(markdown)
		},
	}
}
