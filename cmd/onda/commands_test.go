package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ondaradio/onda/internal/vault"
)

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]string
		wantErr error
	}{
		{"single", []string{"key1=AIzaUno"}, map[string]string{"key1": "AIzaUno"}, nil},
		{"clear", []string{"KEY2="}, map[string]string{"key2": ""}, nil},
		{"value with equals", []string{"key3=a=b"}, map[string]string{"key3": "a=b"}, nil},
		{"unknown slot", []string{"key9=x"}, nil, vault.ErrUnknownSlot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}

	if _, err := parseAssignments([]string{"key1"}); err == nil {
		t.Error("missing '=' should fail")
	}
}

func TestPrintSlots(t *testing.T) {
	var buf bytes.Buffer
	printSlots(&buf, map[string]string{"key2": "", "key1": "AIzaSy****"})
	want := "key1\tAIzaSy****\nkey2\t(empty)\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestParseCommandReadsStdin(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader("## WEB\nCuerpo de la nota\n"))
	rootCmd.SetArgs([]string{"--config", t.TempDir() + "/none.yaml", "parse", "--title", "Nota"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(strings.TrimSpace(out.String()), "{") {
		t.Errorf("expected JSON output, got %q", out.String())
	}
}
