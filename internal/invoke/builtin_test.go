package invoke

import (
	"errors"
	"testing"
)

func TestFormatJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		indent string
		want   string
	}{
		{
			name:  "default indent",
			input: `{"name":"keyfmt","tags":["a","b"]}`,
			want:  "{\n    \"name\": \"keyfmt\",\n    \"tags\": [\"a\", \"b\"]\n}\n",
		},
		{
			name:   "tab indent",
			input:  `{"z":1,"a":2}`,
			indent: "\t",
			want:   "{\n\t\"z\": 1,\n\t\"a\": 2\n}\n",
		},
		{
			name:  "scalar",
			input: `42`,
			want:  "42\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatJSON(tt.input, nil, Variables{Indent: tt.indent})
			if err != nil {
				t.Fatalf("FormatJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FormatJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatJSON_Invalid(t *testing.T) {
	for _, in := range []string{"", "{", `{"a":}`, "[1,2"} {
		if _, err := FormatJSON(in, nil, Variables{}); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("FormatJSON(%q) error = %v, want ErrInvalidJSON", in, err)
		}
	}
}
