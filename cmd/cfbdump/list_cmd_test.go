package main

import (
	"strings"
	"testing"
)

func TestList(t *testing.T) {
	fixture := writeFixture(t, false)

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "human readable",
			args: []string{"list", "--log-level", "error", fixture},
			want: []string{
				`   0  root`,
				`"Root Entry"`,
				`   1  stream      5.0 KiB  "WordDocument"`,
				`"\x05SummaryInformation" (mini)`,
				`   3  storage           -  "ObjectPool"`,
				`   4  stream          5 B  "Dup" (mini)`,
				`   5  stream          6 B  "Dup" (mini)`,
			},
			notWant: []string{`"WordDocument" (mini)`},
		},
		{
			name: "bytes",
			args: []string{"list", "--log-level", "error", "--bytes", fixture},
			want: []string{
				`   1  stream         5120  "WordDocument"`,
				`   2  stream           19  "\x05SummaryInformation" (mini)`,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execCmd(t, createRootCommand(), tt.args...)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}

			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("list output misses %q:\n%s", want, out)
				}
			}
			for _, notWant := range tt.notWant {
				if strings.Contains(out, notWant) {
					t.Errorf("list output contains %q:\n%s", notWant, out)
				}
			}
			if lines := strings.Count(out, "\n"); lines != len(testEntries)+1 {
				t.Errorf("list printed %d lines, want %d", lines, len(testEntries)+1)
			}
		})
	}
}

func TestList_args(t *testing.T) {
	cmd := createListCommand()
	if err := cmd.Args(cmd, []string{}); err == nil {
		t.Error("should error with no arguments")
	}
	if err := cmd.Args(cmd, []string{"file.doc"}); err != nil {
		t.Errorf("should accept one argument, got error: %v", err)
	}
}
