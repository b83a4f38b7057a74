package domain

import (
	"errors"
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "already normal", in: "https://example.com/a", want: "https://example.com/a"},
		{name: "case of scheme and host", in: "HTTPS://Example.COM/Path", want: "https://example.com/Path"},
		{name: "empty path", in: "https://example.com", want: "https://example.com/"},
		{name: "fragment dropped", in: "https://example.com/a#readme", want: "https://example.com/a"},
		{name: "tracking params dropped", in: "https://example.com/a?utm_source=x&ref=y&fbclid=z", want: "https://example.com/a"},
		{name: "other params kept and sorted", in: "https://example.com/s?q=go&a=1&utm_medium=m", want: "https://example.com/s?a=1&q=go"},
		{name: "surrounding spaces", in: "  https://example.com/a  ", want: "https://example.com/a"},
		{name: "ftp rejected", in: "ftp://example.com/a", wantErr: true},
		{name: "no scheme", in: "example.com/a", wantErr: true},
		{name: "no host", in: "https:///a", wantErr: true},
		{name: "garbage", in: "::", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormalizeURL(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidInput) {
				t.Errorf("NormalizeURL(%q) error = %v, want ErrInvalidInput", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
