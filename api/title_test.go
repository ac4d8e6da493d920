package api

import "testing"

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "h1 preferred",
			doc:  `<html><head><title>Site Title</title></head><body><h1>Rucking Basics</h1></body></html>`,
			want: "Rucking Basics",
		},
		{
			name: "title fallback",
			doc:  `<html><head><title>Gear Guide</title></head><body><p>No heading.</p></body></html>`,
			want: "Gear Guide",
		},
		{
			name: "h1 with nested markup",
			doc:  `<h1>The <em>Complete</em> Plan</h1>`,
			want: "The Complete Plan",
		},
		{
			name: "fragment without either",
			doc:  `<p>Just a paragraph.</p>`,
			want: "",
		},
		{
			name: "whitespace trimmed",
			doc:  "<h1>\n  Load Management\n</h1>",
			want: "Load Management",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTitle(tt.doc); got != tt.want {
				t.Errorf("extractTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDocumentSlug(t *testing.T) {
	if got := documentSlug(`<h1>Rucking Basics</h1>`); got != "rucking-basics" {
		t.Errorf("documentSlug = %q", got)
	}
	if got := documentSlug(`<p>no title</p>`); got != "document" {
		t.Errorf("fallback slug = %q", got)
	}
}
