package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"CamelCase", "getUserById", []string{"get", "user", "by", "id"}},
		{"SnakeCase", "parse_config_file", []string{"parse", "config", "file"}},
		{"AcronymRun", "parseHTTPResponse", []string{"parse", "http", "response"}},
		{"LeadingAcronym", "HTTPServer", []string{"http", "server"}},
		{"MixedSeparators", "load_userProfile", []string{"load", "user", "profile"}},
		{"Digits", "base64Encode", []string{"base", "64", "encode"}},
		{"SingleWord", "main", []string{"main"}},
		{"Empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitIdentifier(tt.input))
		})
	}
}

func TestExpandQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "IdentifierKeepsLiteralForm",
			query: "getUserById",
			want:  []string{"getuserbyid", "get", "user", "by", "id"},
		},
		{
			name:  "ProseUnchanged",
			query: "connect to database",
			want:  []string{"connect", "to", "database"},
		},
		{
			name:  "MixedProseAndIdentifier",
			query: "where is parse_config called",
			want:  []string{"where", "is", "parse_config", "parse", "config", "called"},
		},
		{
			name:  "DuplicatesCollapsed",
			query: "user getUser user",
			want:  []string{"user", "getuser", "get"},
		},
		{
			name:  "PunctuationTrimmed",
			query: `"NewServer()"`,
			want:  []string{"newserver", "new", "server"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandQuery(tt.query))
		})
	}
}

func TestIdentifierShaped(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"getUserById", true},
		{"parse_config", true},
		{"base64", true},
		{"how do I connect to the database", false},
		{"error handling patterns", false},
		{"NewServer", true},
		{"Server", false},
		{"", false},
		{"   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, IdentifierShaped(tt.query))
		})
	}
}
