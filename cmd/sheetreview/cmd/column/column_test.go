package column

import (
	"bytes"
	"strings"
	"testing"
)

func run(args ...string) (string, error) {
	cmd := NewCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestColumnCommand(t *testing.T) {
	tests := []struct {
		args    []string
		want    string
		wantErr bool
	}{
		{args: []string{"1"}, want: "A"},
		{args: []string{"60"}, want: "BH"},
		{args: []string{"703"}, want: "AAA"},
		{args: []string{"--label", "AA"}, want: "27"},
		{args: []string{"-l", "bh"}, want: "60"},
		{args: []string{"0"}, wantErr: true},
		{args: []string{"x"}, wantErr: true},
		{args: []string{"--label", "A1"}, wantErr: true},
		{args: []string{"3", "--label", "C"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got, err := run(tt.args...)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected an error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
