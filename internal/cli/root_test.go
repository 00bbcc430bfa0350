package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommandSubcommands(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	want := []string{"generate", "render", "preview", "history", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestRootVerboseFlag(t *testing.T) {
	root := newRoot()
	if root.PersistentFlags().Lookup("verbose") == nil {
		t.Fatal("--verbose not registered")
	}
	if root.PersistentFlags().ShorthandLookup("v") == nil {
		t.Error("-v shorthand not registered")
	}
}

func TestRootVersion(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("--version: %v", err)
	}
	if !strings.Contains(out.String(), "citygen") {
		t.Errorf("version output = %q, want it to name citygen", out.String())
	}
}

func TestGenerateFlagsMatchOptions(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	cmd, _, err := root.Find([]string{"generate"})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"seed", "size", "separation", "snap-radius", "min-lot-area", "config", "preset", "format", "output"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("generate is missing --%s", name)
		}
	}
}

func TestCompleteFormats(t *testing.T) {
	got, _ := completeFormats(nil, nil, "svg,geo")
	found := false
	for _, c := range got {
		if !strings.HasPrefix(c, "svg,") {
			t.Errorf("completion %q lost the finished entries", c)
		}
		if c == "svg,geojson" {
			found = true
		}
	}
	if !found {
		t.Errorf("completions = %v, want svg,geojson", got)
	}
}

func TestPresetCompletionRegistered(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	cmd, _, err := root.Find([]string{"generate"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := cmd.GetFlagCompletionFunc("preset"); !ok {
		t.Error("--preset has no completion")
	}
}
