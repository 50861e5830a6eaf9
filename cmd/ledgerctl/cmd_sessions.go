package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"ledgerdesk/internal/client/events"
	"ledgerdesk/internal/client/sessions"
	wstypes "ledgerdesk/internal/domain/websocket"
)

func sessionsCommand(ctx context.Context, getApp appFunc) *Command {
	// action wraps a main-device action: run it, then print the refetched list.
	action := func(name, summary string, call func(v *sessions.View, sid string) error, done string) *Command {
		return &Command{
			Name:    name,
			Summary: summary,
			Usage:   "<sid>",
			Run: func(args []string) error {
				if err := requireArgs(args, 1, "a session id"); err != nil {
					return err
				}
				a, err := getApp()
				if err != nil {
					return err
				}
				if err := call(a.views, args[0]); err != nil {
					return err
				}
				fmt.Println(done)
				printSessions(a.views.Snapshot())
				return nil
			},
		}
	}

	return &Command{
		Name:    "sessions",
		Summary: "Manage the devices signed in to this account",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List sessions",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					if err := a.views.Fetch(ctx); err != nil {
						return err
					}
					printSessions(a.views.Snapshot())
					return nil
				},
			},
			action("approve", "Approve a pending device", func(v *sessions.View, sid string) error {
				return v.Approve(ctx, sid)
			}, "Session approved."),
			action("revoke", "Revoke or reject a device", func(v *sessions.View, sid string) error {
				return v.Revoke(ctx, sid)
			}, "Session revoked."),
			action("transfer", "Make another approved device the main device", func(v *sessions.View, sid string) error {
				return v.TransferMain(ctx, sid)
			}, "Main device transferred."),
			{
				Name:    "revoke-others",
				Summary: "Sign out every other device",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					if err := a.views.RevokeOthers(ctx); err != nil {
						return err
					}
					fmt.Println("Other sessions revoked.")
					printSessions(a.views.Snapshot())
					return nil
				},
			},
			{
				Name:    "watch",
				Summary: "Print session events as they happen",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					if _, err := a.requireLogin(); err != nil {
						return err
					}
					l, err := events.NewListener(a.cfg.APIURL, a.creds.Token, a.logger.Named("events"))
					if err != nil {
						return err
					}
					fmt.Fprintln(os.Stderr, "Watching for session events; Ctrl-C to stop.")
					err = l.Listen(ctx, printEvent)
					if ctx.Err() != nil {
						return nil
					}
					return err
				},
			},
		},
	}
}

func printSessions(snap sessions.Snapshot) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tw.Flush()
	fmt.Fprintln(tw, "SID\tDEVICE\tIP\tSTATUS\tLAST SEEN\t")
	for _, s := range snap.Sessions {
		marks := ""
		if s.IsMainDevice {
			marks += " [main]"
		}
		if s.IsCurrent {
			marks += " [this device]"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.SID, s.DeviceName, s.IP, sessions.Status(s), s.LastSeen.Local().Format(time.DateTime), marks)
	}
}

func printEvent(ev events.Event) {
	ts := ev.At.Local().Format(time.TimeOnly)
	d := ev.Session
	switch ev.Type {
	case wstypes.EventTypeSessionPending:
		fmt.Printf("%s  new device waiting: %s from %s (sid %s)\n", ts, d.DeviceName, d.IP, d.SessionID)
	case wstypes.EventTypeSessionApproved:
		fmt.Printf("%s  approved: %s\n", ts, d.SessionID)
	case wstypes.EventTypeSessionRevoked, wstypes.EventTypeForceLogout:
		fmt.Printf("%s  revoked: %s %s\n", ts, d.SessionID, d.Reason)
	case wstypes.EventTypeSessionMainTransferred:
		fmt.Printf("%s  main device is now %s\n", ts, d.SessionID)
	case wstypes.EventTypeConnected:
		fmt.Printf("%s  connected\n", ts)
	}
}
