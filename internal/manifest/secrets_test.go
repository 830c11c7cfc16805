package manifest

import (
	"strings"
	"testing"
)

func TestDetectSensitiveData(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "clean",
			content: `relfetch = { installs = { { repo = "o/n", dir = "d", asset = "a" } } }`,
		},
		{
			name:    "github_token",
			content: "local t = \"ghp_" + strings.Repeat("a", 36) + "\"",
			want:    []string{"GitHub Token"},
		},
		{
			name:    "fine_grained_token",
			content: "-- github_pat_" + strings.Repeat("B", 30),
			want:    []string{"GitHub Token"},
		},
		{
			name:    "token_assignment",
			content: "\n\nauth_token = 'abcdefghijklmnopqrstuvwxyz'",
			want:    []string{"Token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := DetectSensitiveData(tt.content)
			if len(findings) != len(tt.want) {
				t.Fatalf("findings = %+v, want %v", findings, tt.want)
			}
			for i, f := range findings {
				if f.PatternName != tt.want[i] {
					t.Errorf("finding %d = %s, want %s", i, f.PatternName, tt.want[i])
				}
				if strings.Contains(f.Preview, "abcdefghijklmnop") || strings.Contains(f.Preview, "aaaaaaaaaaaa") {
					t.Errorf("preview leaks the secret: %q", f.Preview)
				}
			}
		})
	}
}

func TestDetectSensitiveDataLineNumbers(t *testing.T) {
	findings := DetectSensitiveData("\n\nauth_token = 'abcdefghijklmnopqrstuvwxyz'")
	if len(findings) != 1 || findings[0].Line != 3 {
		t.Fatalf("findings = %+v", findings)
	}
	if findings[0].Preview != "auth_token = [REDACTED]" {
		t.Errorf("Preview = %q", findings[0].Preview)
	}
}

func TestFormatSensitiveDataWarning(t *testing.T) {
	if got := FormatSensitiveDataWarning(nil); got != "" {
		t.Errorf("empty findings should format to empty string, got %q", got)
	}

	msg := FormatSensitiveDataWarning([]SensitiveDataFinding{
		{PatternName: "Token", Description: "Potential authentication token detected", Line: 4, Preview: "token = [REDACTED]"},
	})
	if !strings.Contains(msg, "line 4") || !strings.Contains(msg, "RELFETCH_TOKEN") {
		t.Errorf("warning = %q", msg)
	}
}
