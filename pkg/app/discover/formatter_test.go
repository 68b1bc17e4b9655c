package discover

import (
	"testing"
	"time"
)

func sampleResponse() *Response {
	return &Response{
		Files: []FileResult{
			{Path: "/docs/a.pdf", Name: "a.pdf", Size: 2048, Modified: time.Now(), Extension: "pdf"},
			{Path: "/docs/sub", Name: "sub", IsDir: true, Modified: time.Now()},
		},
		TotalFound: 2,
		SearchTime: 10 * time.Millisecond,
		VolumeInfo: VolumeInfo{SerialHex: "0011223344556677", BytesPerSector: 512, ClusterSize: 4096},
	}
}

func TestFormatOutput(t *testing.T) {
	tests := []struct {
		name    string
		format  string
		wantErr bool
	}{
		{"table format", "table", false},
		{"json format", "json", false},
		{"yaml format", "yaml", false},
		{"unsupported format", "xml", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FormatOutput(sampleResponse(), tt.format)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for format %q", tt.format)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for format %q: %v", tt.format, err)
			}
		})
	}
}

func TestFormatOutputEmptyResults(t *testing.T) {
	resp := &Response{VolumeInfo: VolumeInfo{SerialHex: "0"}}
	if err := FormatOutput(resp, "table"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFormatSummary(t *testing.T) {
	resp := sampleResponse()
	summary := FormatSummary(resp)
	if summary == "" {
		t.Fatal("expected non-empty summary")
	}

	empty := FormatSummary(&Response{})
	if empty != "No files found" {
		t.Fatalf("expected 'No files found', got %q", empty)
	}
}
