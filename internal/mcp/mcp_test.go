package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/leadscan/internal/config"
	"github.com/hpungsan/leadscan/internal/errors"
)

const sampleCSV = `name,phone,postal_code,delivery,size,city,submitted_at
Alice,555-1,10001,pickup,M,Springfield,2023-01-01 10:00:00
Bob,555-2,10002,delivery,L,Shelbyville,2023-01-01 11:00:00
Bob,555-2,10002,delivery,L,Shelbyville,2023-01-02 11:00:00
Alice,555-1,10001,pickup,M,Springfield,2023-01-10 10:00:00
Alice,555-9,10001,pickup,M,Springfield,2023-01-20 10:00:00
`

// testSetup writes the sample CSV and returns handlers with a default config.
func testSetup(t *testing.T) (*Handlers, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "web_leads.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0600); err != nil {
		t.Fatalf("failed to write csv: %v", err)
	}
	return NewHandlers(config.DefaultConfig()), path
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// --- leads_analyze ---

func TestHandleAnalyze(t *testing.T) {
	h, path := testSetup(t)

	result, err := h.HandleAnalyze(context.Background(), makeRequest(map[string]any{"path": path}))
	if err != nil {
		t.Fatalf("HandleAnalyze returned error: %v", err)
	}
	output := parseOutput(t, result)

	want := map[string]float64{"total_leads": 5, "customers": 3, "multi_lead": 2, "returning": 1, "threshold_hours": 72}
	for key, v := range want {
		if output[key] != v {
			t.Errorf("%s = %v, want %v", key, output[key], v)
		}
	}
	if output["title"] != "web_leads" {
		t.Errorf("title = %v, want web_leads", output["title"])
	}
	if _, ok := output["customer_list"]; ok {
		t.Error("customer_list should be omitted unless requested")
	}
}

func TestHandleAnalyze_IncludeCustomers(t *testing.T) {
	h, path := testSetup(t)

	result, _ := h.HandleAnalyze(context.Background(), makeRequest(map[string]any{
		"path":              path,
		"title":             "Spring",
		"include_customers": true,
	}))
	output := parseOutput(t, result)

	if output["title"] != "Spring" {
		t.Errorf("title = %v, want Spring", output["title"])
	}
	list, ok := output["customer_list"].([]any)
	if !ok || len(list) != 3 {
		t.Fatalf("customer_list = %v, want 3 entries", output["customer_list"])
	}
	first := list[0].(map[string]any)
	if first["name"] != "Alice" || first["returning"] != true {
		t.Errorf("first customer = %v, want returning Alice", first)
	}
}

func TestHandleAnalyze_ConfiguredTitle(t *testing.T) {
	h, path := testSetup(t)
	h.cfg.DefaultTitle = "Weekly Leads"

	result, _ := h.HandleAnalyze(context.Background(), makeRequest(map[string]any{"path": path}))
	if got := parseOutput(t, result)["title"]; got != "Weekly Leads" {
		t.Errorf("title = %v, want Weekly Leads", got)
	}
}

func TestHandleAnalyze_Errors(t *testing.T) {
	h, path := testSetup(t)

	badRow := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(badRow, []byte("h\nAlice,1,2,3,4,5,yesterday\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args map[string]any
		code errors.ErrorCode
	}{
		{"missing path", map[string]any{}, errors.ErrInvalidRequest},
		{"wrong type", map[string]any{"path": 42}, errors.ErrInvalidRequest},
		{"unknown argument", map[string]any{"path": path, "file": path}, errors.ErrInvalidRequest},
		{"file not found", map[string]any{"path": filepath.Join(t.TempDir(), "nope.csv")}, errors.ErrFileNotFound},
		{"bad timestamp", map[string]any{"path": badRow}, errors.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleAnalyze(context.Background(), makeRequest(tt.args))
			if err != nil {
				t.Fatalf("HandleAnalyze returned error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected IsError=true")
			}
			assertErrorCode(t, result, string(tt.code))
		})
	}
}

// --- leads_customers ---

func TestHandleCustomers(t *testing.T) {
	h, path := testSetup(t)

	tests := []struct {
		set   string
		want  string
		names []string
	}{
		{"", "all", []string{"Alice", "Bob", "Alice"}},
		{"multi", "multi", []string{"Alice", "Bob"}},
		{"Returning", "returning", []string{"Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			args := map[string]any{"path": path}
			if tt.set != "" {
				args["set"] = tt.set
			}
			result, _ := h.HandleCustomers(context.Background(), makeRequest(args))
			output := parseOutput(t, result)

			if output["set"] != tt.want {
				t.Errorf("set = %v, want %s", output["set"], tt.want)
			}
			customers := output["customers"].([]any)
			if len(customers) != len(tt.names) {
				t.Fatalf("len(customers) = %d, want %d", len(customers), len(tt.names))
			}
			for i, c := range customers {
				if name := c.(map[string]any)["name"]; name != tt.names[i] {
					t.Errorf("customers[%d] = %v, want %s", i, name, tt.names[i])
				}
			}
		})
	}
}

func TestHandleCustomers_UnknownSetChecksFirst(t *testing.T) {
	h := NewHandlers(nil)

	// The path does not exist: the set must be rejected before the file is read
	result, _ := h.HandleCustomers(context.Background(), makeRequest(map[string]any{
		"path": "/does/not/exist.csv",
		"set":  "vip",
	}))
	assertErrorCode(t, result, string(errors.ErrInvalidRequest))
}

// --- leads_chart ---

func TestHandleChart(t *testing.T) {
	h, path := testSetup(t)
	outPath := filepath.Join(t.TempDir(), "chart.svg")

	result, _ := h.HandleChart(context.Background(), makeRequest(map[string]any{
		"path":     path,
		"out_path": outPath,
		"title":    "Spring",
	}))
	output := parseOutput(t, result)

	if output["path"] != outPath || output["format"] != "svg" {
		t.Errorf("output = %v, want svg at %s", output, outPath)
	}
	if output["returning"] != float64(1) {
		t.Errorf("returning = %v, want 1", output["returning"])
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("chart not written: %v", err)
	}
	if !strings.Contains(string(data), "Data from: Spring") {
		t.Error("chart missing title")
	}
}

func TestHandleChart_Errors(t *testing.T) {
	h, path := testSetup(t)
	dir := t.TempDir()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing out_path", map[string]any{"path": path}},
		{"bad extension", map[string]any{"path": path, "out_path": filepath.Join(dir, "c.pdf")}},
		{"format mismatch", map[string]any{"path": path, "out_path": filepath.Join(dir, "c.png"), "format": "svg"}},
		{"traversal", map[string]any{"path": path, "out_path": "../c.png"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, _ := h.HandleChart(context.Background(), makeRequest(tt.args))
			assertErrorCode(t, result, string(errors.ErrInvalidRequest))
		})
	}
}

// --- registration ---

func TestServerRegistration_AllTools(t *testing.T) {
	s := NewServer(config.DefaultConfig(), "test")
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	for _, name := range AllToolNames() {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTools = []string{"leads_chart", "leads_chart", "not_a_tool"}
	tools := NewServer(cfg, "test").ListTools()

	if len(tools) != 2 {
		t.Errorf("registered tool count = %d, want 2", len(tools))
	}
	if _, ok := tools["leads_chart"]; ok {
		t.Error("disabled tool leads_chart should not be registered")
	}
}

func TestServerRegistration_DisabledType(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DisabledTypes = []string{"leads"}
	tools := NewServer(cfg, "test").ListTools()

	if len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"leads_chart", "leads_analyze"}, 0},
		{"one unknown", []string{"leads_chart", "fake_tool"}, 1},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	if unknown := ValidateDisabledTypes([]string{"leads", "widgets"}); len(unknown) != 1 || unknown[0] != "widgets" {
		t.Errorf("ValidateDisabledTypes() = %v, want [widgets]", unknown)
	}
}

func TestGetTypeForTool(t *testing.T) {
	tests := map[string]string{
		"leads_analyze": "leads",
		"leads":         "",
		"_leads":        "",
	}
	for in, want := range tests {
		if got := GetTypeForTool(in); got != want {
			t.Errorf("GetTypeForTool(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	want := []string{"leads_analyze", "leads_chart", "leads_customers"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("AllToolNames() = %v, want %v", names, want)
	}
}

// --- errorResult ---

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewParseError(7, "bad timestamp"))

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrParse) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrParse)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	r := errorResult(fmt.Errorf("chart: %w", errors.NewInvalidRequest("format must be png or svg")))

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInvalidRequest) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrInvalidRequest)
	}
	if msg := errObj["message"].(string); msg != "chart: format must be png or svg" {
		t.Errorf("message = %q", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(fmt.Errorf("boom")))
	if errObj["code"] != "INTERNAL" || errObj["message"] != "an internal error occurred" {
		t.Errorf("error = %v", errObj)
	}
}

// Helper functions

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(extractErrorMessage(result)), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected error %s, got success: %s", expectedCode, extractErrorMessage(result))
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %v, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
