package main

import (
	"reflect"
	"testing"
)

func TestParseKeyValues(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]string
		wantErr bool
	}{
		{
			name:  "empty input",
			pairs: nil,
			want:  nil,
		},
		{
			name:  "single pair",
			pairs: []string{"client_name=Avery Chen"},
			want:  map[string]string{"client_name": "Avery Chen"},
		},
		{
			name:  "multiple pairs",
			pairs: []string{"client_name=Avery", "household_size=3"},
			want:  map[string]string{"client_name": "Avery", "household_size": "3"},
		},
		{
			name:  "empty value clears the field",
			pairs: []string{"contact_email="},
			want:  map[string]string{"contact_email": ""},
		},
		{
			name:  "value containing equals sign",
			pairs: []string{"note=a=b"},
			want:  map[string]string{"note": "a=b"},
		},
		{
			name:    "missing equals sign",
			pairs:   []string{"client_name"},
			wantErr: true,
		},
		{
			name:    "empty name",
			pairs:   []string{"=value"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseKeyValues(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseKeyValues(%v) error = %v, wantErr %v", tt.pairs, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseKeyValues(%v) = %v, want %v", tt.pairs, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "string shorter than max",
			input:  "hello",
			maxLen: 10,
			want:   "hello",
		},
		{
			name:   "string equal to max",
			input:  "hello",
			maxLen: 5,
			want:   "hello",
		},
		{
			name:   "string longer than max",
			input:  "hello world",
			maxLen: 8,
			want:   "hello...",
		},
		{
			name:   "hash-length string",
			input:  "sha256:0123456789abcdef0123456789abcdef",
			maxLen: 24,
			want:   "sha256:0123456789abc...",
		},
		{
			name:   "empty string",
			input:  "",
			maxLen: 10,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestLocalized(t *testing.T) {
	tests := []struct {
		name string
		m    map[string]string
		lang string
		want string
	}{
		{
			name: "requested language present",
			m:    map[string]string{"en": "Full name", "fr": "Nom complet"},
			lang: "fr",
			want: "Nom complet",
		},
		{
			name: "falls back to english",
			m:    map[string]string{"en": "Full name"},
			lang: "fr",
			want: "Full name",
		},
		{
			name: "falls back to any language",
			m:    map[string]string{"fr": "Nom complet"},
			lang: "de",
			want: "Nom complet",
		},
		{
			name: "empty value skipped",
			m:    map[string]string{"fr": "", "en": "Full name"},
			lang: "fr",
			want: "Full name",
		},
		{
			name: "empty map",
			m:    map[string]string{},
			lang: "en",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := localized(tt.m, tt.lang)
			if got != tt.want {
				t.Errorf("localized(%v, %q) = %q, want %q", tt.m, tt.lang, got, tt.want)
			}
		})
	}
}

func TestSortedKeys(t *testing.T) {
	m := map[string]string{
		"household_size": "3",
		"client_name":    "Avery",
		"sin":            "046454286",
	}

	got := sortedKeys(m)
	want := []string{"client_name", "household_size", "sin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sortedKeys(%v) = %v, want %v", m, got, want)
	}

	if keys := sortedKeys(nil); len(keys) != 0 {
		t.Errorf("sortedKeys(nil) = %v, want empty", keys)
	}
}

func TestYesNo(t *testing.T) {
	if got := yesNo(true); got != "yes" {
		t.Errorf("yesNo(true) = %q, want %q", got, "yes")
	}
	if got := yesNo(false); got != "no" {
		t.Errorf("yesNo(false) = %q, want %q", got, "no")
	}
}
