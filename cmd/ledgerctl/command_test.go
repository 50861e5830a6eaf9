package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestExecuteDispatch(t *testing.T) {
	var got []string
	var to string
	root := &Command{
		Name: "ledgerctl",
		Subcommands: []*Command{{
			Name: "wallet",
			Subcommands: []*Command{{
				Name: "send",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("send", pflag.ContinueOnError)
					fs.StringVar(&to, "to", "", "")
					return fs
				},
				Run: func(args []string) error {
					got = args
					return nil
				},
			}},
		}},
	}

	if err := root.Execute([]string{"wallet", "send", "--to", "0xabc", "extra"}); err != nil {
		t.Fatal(err)
	}
	if to != "0xabc" || len(got) != 1 || got[0] != "extra" {
		t.Fatalf("to = %q, args = %v", to, got)
	}

	err := root.Execute([]string{"wallet", "sned"})
	if err == nil || !strings.Contains(err.Error(), "ledgerctl wallet --help") {
		t.Fatalf("err = %v", err)
	}
	if err := root.Execute([]string{"wallet", "send", "--bogus"}); err == nil {
		t.Fatal("expected flag error")
	}
	if err := root.Execute(nil); err == nil {
		t.Fatal("expected subcommand error")
	}
}

func TestRootCommandDoesNotBuildAppForHelp(t *testing.T) {
	called := false
	root := rootCommand(context.Background(), func() (*app, error) {
		called = true
		return nil, errors.New("no config")
	})
	if err := root.Execute([]string{"sessions", "--help"}); err != nil {
		t.Fatal(err)
	}
	if err := root.Execute([]string{"sessions", "approve"}); err == nil || called {
		t.Fatalf("err = %v, app built = %v", err, called)
	}
	names := map[string]bool{}
	for _, sub := range root.Subcommands {
		names[sub.Name] = true
	}
	for _, want := range []string{"login", "register", "logout", "whoami", "wait", "sessions", "wallet", "report", "password", "employees"} {
		if !names[want] {
			t.Errorf("missing command %s", want)
		}
	}
}
