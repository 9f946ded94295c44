package domain

import (
	"errors"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare host gets https", "example.com", "https://example.com"},
		{"https kept", "https://example.com", "https://example.com"},
		{"http kept", "http://example.com", "http://example.com"},
		{"uppercase scheme kept", "HTTPS://Example.com", "HTTPS://Example.com"},
		{"path preserved", "example.com/a/b?q=1", "https://example.com/a/b?q=1"},
		{"surrounding spaces trimmed", "  example.com  ", "https://example.com"},
		{"empty stays empty", "", ""},
		{"spaces only stays empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewBookmark(t *testing.T) {
	tests := []struct {
		name     string
		owner    string
		title    string
		url      string
		folderID string
		wantErr  bool
		wantURL  string
	}{
		{"valid", "u1", "Docs", "example.com", "", false, "https://example.com"},
		{"valid with folder", "u1", "Docs", "https://example.com", "f1", false, "https://example.com"},
		{"empty title", "u1", "   ", "example.com", "", true, ""},
		{"empty url", "u1", "Docs", "", "", true, ""},
		{"whitespace url", "u1", "Docs", "   ", "", true, ""},
		{"missing owner", "", "Docs", "example.com", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBookmark(tt.owner, tt.title, tt.url, tt.folderID)
			if tt.wantErr {
				if err == nil {
					t.Fatal("NewBookmark() expected error, got nil")
				}
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("NewBookmark() error = %T, want *ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewBookmark() unexpected error: %v", err)
			}
			if b.URL != tt.wantURL {
				t.Errorf("NewBookmark() url = %q, want %q", b.URL, tt.wantURL)
			}
			if b.ID != "" || !b.CreatedAt.IsZero() {
				t.Error("NewBookmark() must leave ID and CreatedAt for the store to assign")
			}
		})
	}
}

func TestNewFolder(t *testing.T) {
	f, err := NewFolder("u1", "  Reading  ", "")
	if err != nil {
		t.Fatalf("NewFolder() unexpected error: %v", err)
	}
	if f.Name != "Reading" {
		t.Errorf("NewFolder() name = %q, want %q", f.Name, "Reading")
	}
	if f.Color != DefaultFolderColor {
		t.Errorf("NewFolder() color = %q, want default %q", f.Color, DefaultFolderColor)
	}

	if _, err := NewFolder("u1", "   ", "#fff"); err == nil {
		t.Error("NewFolder() with blank name should fail")
	}
}
