package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	if !strings.Contains(out.String(), "Name?") {
		t.Fatalf("prompt not written: %q", out.String())
	}
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEmptyEOF(t *testing.T) {
	var out bytes.Buffer
	_, err := GetSimpleText(rdr(""), "Name?", &out)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{name: "valid", input: "3\n", want: 3},
		{name: "lower bound", input: "0\n", want: 0},
		{name: "upper bound", input: "5\n", want: 5},
		{name: "out of range", input: "6\n", wantErr: true},
		{name: "negative", input: "-1\n", wantErr: true},
		{name: "not a number", input: "three\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetInt(rdr(tt.input), "Grade?", 0, 5, &out)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %d, err=%v", got, err)
			}
		})
	}
}

func TestGetSecret_PipedInput(t *testing.T) {
	// Stdin is not a terminal under "go test", so GetSecret takes the
	// plain-read fallback.
	var out bytes.Buffer
	got, err := GetSecret(rdr("hunter2\n"), "Secret", &out)
	if err != nil || got != "hunter2" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}
