package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"

	"ledgerdesk/internal/client/approval"
)

// waitPlain runs the gate without the waiting screen. A line of "s" or
// "signout" on in signs out, and so does an interrupt; any other signal
// abandons the wait.
func waitPlain(ctx context.Context, gate *approval.Gate, sid, role string, in io.Reader, signals <-chan os.Signal) (approval.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			switch strings.ToLower(strings.TrimSpace(sc.Text())) {
			case "s", "signout", "sign out":
				gate.SignOut()
				return
			}
		}
	}()
	go func() {
		select {
		case sig := <-signals:
			if sig == os.Interrupt {
				gate.SignOut()
				return
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return gate.Wait(ctx, sid, role)
}
