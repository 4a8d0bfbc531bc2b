package sanitize

import "testing"

func TestText(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain ascii untouched", input: "Juan Perez 2", want: "Juan Perez 2"},
		{name: "lowercase accents", input: "José Ramón Muñoz", want: "Jose Ramon Munoz"},
		{name: "uppercase accents", input: "ÁNGEL ÑOÑO", want: "ANGEL NONO"},
		{name: "cedilla", input: "Çalçada", want: "Calcada"},
		{name: "unmapped runes pass through", input: "café — 100%", want: "cafe — 100%"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Text(tc.input); got != tc.want {
				t.Fatalf("Text(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{input: "José Ramón", want: "jose-ramon"},
		{input: "  María  del  Carmen ", want: "maria-del-carmen"},
		{input: "plain", want: "plain"},
	}

	for _, tc := range cases {
		if got := Slug(tc.input); got != tc.want {
			t.Fatalf("Slug(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
