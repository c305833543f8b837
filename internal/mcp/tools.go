package mcp

import "github.com/mark3labs/mcp-go/mcp"

var analyzeToolDef = mcp.NewTool("leads_analyze",
	mcp.WithDescription("Analyze a lead CSV file. Groups leads by customer (exact name and phone) and counts "+
		"customers with more than one submission and returning customers whose later submission is more than "+
		"72 hours from their first."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the CSV file. The first row is a header.")),
	mcp.WithString("title", mcp.Description("Report title. Defaults to the file name without extension.")),
	mcp.WithBoolean("include_customers", mcp.Description("Include per-customer summaries in the result.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var customersToolDef = mcp.NewTool("leads_customers",
	mcp.WithDescription("List the customers of a lead CSV file in first-seen order, optionally only "+
		"multi-lead or returning customers."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the CSV file.")),
	mcp.WithString("set",
		mcp.Description("Which customers to return. Default: all."),
		mcp.Enum("all", "multi", "returning"),
	),
	mcp.WithReadOnlyHintAnnotation(true),
)

var chartToolDef = mcp.NewTool("leads_chart",
	mcp.WithDescription("Render the lead summary bar chart (total leads, customers with multiple submissions, "+
		"returning customers) of a CSV file to a PNG or SVG file."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to the CSV file.")),
	mcp.WithString("out_path", mcp.Required(), mcp.Description("Chart file to write, ending in .png or .svg.")),
	mcp.WithString("title", mcp.Description("Chart title. Defaults to the file name without extension.")),
	mcp.WithString("format", mcp.Description("png or svg. Defaults to the out_path extension."), mcp.Enum("png", "svg")),
	mcp.WithNumber("width_cm", mcp.Description("Chart width in centimeters.")),
	mcp.WithNumber("height_cm", mcp.Description("Chart height in centimeters.")),
)
