// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestWithContextCarriesKeys(t *testing.T) {
	out := new(bytes.Buffer)
	SetDefault(NewLogger(NewTerminalHandler(out, false)))

	l := WithContext("pkg", "trim")
	l.Info("worker started", "leaf", 7)

	have := out.String()
	if !strings.Contains(have, "pkg=trim") {
		t.Errorf("expected pkg=trim in output, got %q", have)
	}
	if !strings.Contains(have, "leaf=7") {
		t.Errorf("expected leaf=7 in output, got %q", have)
	}
}

func TestLevelGating(t *testing.T) {
	out := new(bytes.Buffer)
	var lvl slog.LevelVar
	lvl.Set(LevelInfo)
	l := NewLogger(NewTerminalHandlerWithLevel(out, &lvl, false))

	l.Debug("should not appear")
	if out.Len() != 0 {
		t.Errorf("expected no output below level, got %q", out.String())
	}

	l.Info("should appear")
	if out.Len() == 0 {
		t.Error("expected output at gated level")
	}
}

func TestJSONHandler(t *testing.T) {
	out := new(bytes.Buffer)
	NewLogger(JSONHandler(out)).Info("hi there")
	if out.Len() == 0 {
		t.Error("expected non-empty JSON output")
	}
}
