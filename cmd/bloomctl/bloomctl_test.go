package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/bloomcycle/bloom/internal/app/system/authutil"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"2024-03-01", "2024-03-01:", false},
		{"2024-03-01:2024-03-05", "2024-03-01:2024-03-05", false},
		{" 2024-03-01:2024-03-01 ", "2024-03-01:2024-03-01", false},
		{"2024-3-1", "", true},
		{"2024-03-01:soon", "", true},
		{"2024-03-05:2024-03-01", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := parsePeriod(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parsePeriod(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err == nil {
				if got := p.StartDate + ":" + p.EndDate; got != tt.want {
					t.Errorf("parsePeriod(%q) = %s, want %s", tt.in, got, tt.want)
				}
			}
		})
	}
}

func TestRenderMonth(t *testing.T) {
	html, err := renderMonth(renderInput{
		Month:       "2024-03",
		Today:       "2024-03-15",
		Periods:     []string{"2024-03-01:2024-03-05"},
		CycleLength: 28,
		Ahead:       1,
		Range:       2,
		Select:      "2024-03-10",
	})
	if err != nil {
		t.Fatalf("renderMonth() error = %v", err)
	}

	if !strings.Contains(html, "March 2024") {
		t.Error("title missing")
	}
	if n := strings.Count(html, "calendar-day-period"); n != 5 {
		t.Errorf("period days = %d, want 5", n)
	}
	// 2024-03-29 plus or minus two days
	if n := strings.Count(html, "calendar-day-predicted"); n != 5 {
		t.Errorf("predicted days = %d, want 5", n)
	}
	if !strings.Contains(html, "calendar-day-today") {
		t.Error("today not marked")
	}
	if !strings.Contains(html, `data-action="toggle-period" data-date="2024-03-10"`) {
		t.Error("selection actions missing")
	}
}

func TestRenderMonth_BadInput(t *testing.T) {
	tests := []struct {
		name string
		in   renderInput
	}{
		{"month", renderInput{Month: "March"}},
		{"today", renderInput{Today: "15/03/2024"}},
		{"period", renderInput{Periods: []string{"yesterday"}}},
		{"select", renderInput{Today: "2024-03-15", Select: "tomorrow"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := renderMonth(tt.in); err == nil {
				t.Error("renderMonth() error = nil, want error")
			}
		})
	}
}

func TestRenderMonthCmd(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"render-month", "--month", "2024-12", "--today", "2024-12-01"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(out.String(), "December 2024") {
		t.Errorf("output missing month title: %q", out.String())
	}
}

func lines(vals ...string) readFunc {
	return func(string) (string, error) {
		if len(vals) == 0 {
			return "", errors.New("no more input")
		}
		v := vals[0]
		vals = vals[1:]
		return v, nil
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := hashPassword(lines("meadow-lark-42", "meadow-lark-42"), "rose")
	if err != nil {
		t.Fatalf("hashPassword() error = %v", err)
	}
	if !authutil.CheckPassword("meadow-lark-42", hash) {
		t.Error("hash does not verify")
	}
}

func TestHashPassword_Rejects(t *testing.T) {
	tests := []struct {
		name string
		read readFunc
		want error
	}{
		{"mismatch", lines("meadow-lark-42", "meadow-lark-43"), nil},
		{"too short", lines("short", "short"), authutil.ErrPasswordTooShort},
		{"common", lines("password1", "password1"), authutil.ErrPasswordCommon},
		{"no confirmation", lines("meadow-lark-42"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hashPassword(tt.read, "rose")
			if err == nil {
				t.Fatal("hashPassword() error = nil, want error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("hashPassword() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestHashPasswordCmd_Piped(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("meadow-lark-42\nmeadow-lark-42\n"))
	cmd.SetArgs([]string{"hash-password"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	hash := strings.TrimSpace(out.String())
	if !authutil.CheckPassword("meadow-lark-42", hash) {
		t.Errorf("printed hash %q does not verify", hash)
	}
}
