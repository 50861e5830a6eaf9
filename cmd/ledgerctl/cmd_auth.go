package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"ledgerdesk/internal/client/account"
	"ledgerdesk/internal/client/api"
	"ledgerdesk/internal/client/approval"
	"ledgerdesk/internal/client/tui"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func loginCommand(ctx context.Context, getApp appFunc) *Command {
	var email string
	var noWait, plain bool
	return &Command{
		Name:    "login",
		Summary: "Sign in; a new device waits for approval from the main device",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
			fs.StringVarP(&email, "email", "e", "", "account email")
			fs.BoolVar(&noWait, "no-wait", false, "return immediately when approval is pending")
			fs.BoolVar(&plain, "plain", false, "print progress lines instead of the waiting screen")
			return fs
		},
		Run: func(args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if email, err = valueOrPrompt(email, "Email: "); err != nil {
				return err
			}
			password, err := readPassword("Password: ")
			if err != nil {
				return err
			}

			out, err := a.account.Login(ctx, email, password)
			if err != nil {
				return err
			}
			return afterSignIn(ctx, a, out, noWait, plain)
		},
	}
}

func registerCommand(ctx context.Context, getApp appFunc) *Command {
	var in account.RegisterInput
	return &Command{
		Name:    "register",
		Summary: "Create a manager account; this device becomes the main device",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("register", pflag.ContinueOnError)
			fs.StringVarP(&in.Email, "email", "e", "", "account email")
			fs.StringVar(&in.FullName, "name", "", "full name")
			fs.StringVar(&in.Phone, "phone", "", "phone number")
			return fs
		},
		Run: func(args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if in.Email, err = valueOrPrompt(in.Email, "Email: "); err != nil {
				return err
			}
			if in.FullName, err = valueOrPrompt(in.FullName, "Full name: "); err != nil {
				return err
			}
			if in.Password, err = readNewPassword("Password: "); err != nil {
				return err
			}

			out, err := a.account.Register(ctx, in)
			if err != nil {
				return err
			}
			return afterSignIn(ctx, a, out, true, true)
		},
	}
}

func afterSignIn(ctx context.Context, a *app, out *account.Outcome, noWait, plain bool) error {
	if out.Approved {
		fmt.Printf("Signed in as %s (%s). Home: %s\n", out.User.Email, out.User.Role, out.Home)
		return nil
	}
	fmt.Println("This device is waiting for approval from your main device.")
	if noWait {
		fmt.Println("Run 'ledgerctl wait' to keep waiting.")
		return nil
	}
	return waitForApproval(ctx, a, plain)
}

func waitCommand(ctx context.Context, getApp appFunc) *Command {
	var plain bool
	return &Command{
		Name:    "wait",
		Summary: "Wait until the main device approves this session",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("wait", pflag.ContinueOnError)
			fs.BoolVar(&plain, "plain", false, "print progress lines instead of the waiting screen")
			return fs
		},
		Run: func(args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			return waitForApproval(ctx, a, plain)
		},
	}
}

func waitForApproval(ctx context.Context, a *app, plain bool) error {
	user, err := a.requireLogin()
	if err != nil {
		return err
	}
	opts := approval.Options{
		Interval: a.cfg.PollInterval,
		MaxWait:  a.cfg.ApprovalTimeout,
		Logger:   a.logger.Named("approval"),
	}

	var res approval.Result
	if plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		opts.OnStatus = func(s approval.Status) {
			fmt.Printf("status: %s\n", s)
		}
		// Interrupts sign out here instead of ending the command, so the
		// wait runs detached from the signal-cancelled ctx.
		signals := make(chan os.Signal, 1)
		signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(signals)
		fmt.Fprintln(os.Stderr, "Waiting for approval. Enter 's' or press Ctrl-C to sign out.")
		gate := approval.NewGate(a.api, a.account, opts)
		res, err = waitPlain(context.WithoutCancel(ctx), gate, a.creds.SessionID(), user.Role, stdin, signals)
	} else {
		info := tui.WaitInfo{
			Email:      user.Email,
			DeviceName: a.creds.Device().Name,
			SessionID:  a.creds.SessionID(),
			Role:       user.Role,
		}
		res, err = tui.RunWait(ctx, a.api, a.account, opts, info, os.Stdin, os.Stdout)
	}
	if err != nil {
		return err
	}

	switch res.Outcome {
	case approval.Approved:
		fmt.Printf("Approved. Home: %s\n", res.Home)
	case approval.Rejected:
		if err := a.creds.Clear(); err != nil {
			a.logger.Warn("clearing credentials", zap.Error(err))
		}
		return errors.New("the main device rejected this sign-in")
	case approval.TimedOut:
		fmt.Printf("Still waiting after %s. Run 'ledgerctl wait' again or 'ledgerctl logout'.\n", a.cfg.ApprovalTimeout)
	case approval.SignedOut:
		fmt.Println("Signed out.")
		if res.SignOutErr != nil {
			fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", res.SignOutErr)
		}
	}
	return nil
}

func logoutCommand(ctx context.Context, getApp appFunc) *Command {
	return &Command{
		Name:    "logout",
		Summary: "End this session and forget the stored credentials",
		Run: func(args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			if !a.creds.SignedIn() {
				fmt.Println("Not signed in.")
				return nil
			}
			if err := a.account.Logout(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", err)
			}
			fmt.Println("Signed out.")
			return nil
		},
	}
}

func whoamiCommand(ctx context.Context, getApp appFunc) *Command {
	var remote bool
	return &Command{
		Name:    "whoami",
		Summary: "Show the signed-in user and device",
		Flags: func() *pflag.FlagSet {
			fs := pflag.NewFlagSet("whoami", pflag.ContinueOnError)
			fs.BoolVar(&remote, "remote", false, "fetch the profile from the server")
			return fs
		},
		Run: func(args []string) error {
			a, err := getApp()
			if err != nil {
				return err
			}
			user, err := a.requireLogin()
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer tw.Flush()
			fmt.Fprintf(tw, "Email:\t%s\n", user.Email)
			fmt.Fprintf(tw, "Name:\t%s\n", user.FullName)
			fmt.Fprintf(tw, "Role:\t%s\n", user.Role)
			fmt.Fprintf(tw, "Session:\t%s\n", a.creds.SessionID())
			fmt.Fprintf(tw, "Device:\t%s (%s)\n", a.creds.Device().Name, a.creds.Device().ID)
			if w := a.creds.Wallet(); w.Connected {
				fmt.Fprintf(tw, "Wallet:\t%s\n", w.Address)
			}
			if remote {
				p, err := a.api.Profile(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "Phone:\t%s\n", p.Phone)
			}
			return nil
		},
	}
}

func passwordCommand(ctx context.Context, getApp appFunc) *Command {
	var email, token string
	return &Command{
		Name:    "password",
		Summary: "Change, forget or reset a password",
		Subcommands: []*Command{
			{
				Name:    "change",
				Summary: "Change the password; other devices are signed out",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					current, err := readPassword("Current password: ")
					if err != nil {
						return err
					}
					next, err := readNewPassword("New password: ")
					if err != nil {
						return err
					}
					if err := a.account.ChangePassword(ctx, current, next); err != nil {
						return err
					}
					fmt.Println("Password changed. Other devices were signed out.")
					return nil
				},
			},
			{
				Name:    "forgot",
				Summary: "Email a reset token",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("forgot", pflag.ContinueOnError)
					fs.StringVarP(&email, "email", "e", "", "account email")
					return fs
				},
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					if email, err = valueOrPrompt(email, "Email: "); err != nil {
						return err
					}
					if err := a.account.ForgotPassword(ctx, email); err != nil {
						return err
					}
					fmt.Println("If the account exists, a reset token is on its way.")
					return nil
				},
			},
			{
				Name:    "reset",
				Summary: "Set a new password with a reset token",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("reset", pflag.ContinueOnError)
					fs.StringVar(&token, "token", "", "reset token from the email")
					return fs
				},
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					if token, err = valueOrPrompt(token, "Reset token: "); err != nil {
						return err
					}
					next, err := readNewPassword("New password: ")
					if err != nil {
						return err
					}
					if err := a.account.ResetPassword(ctx, token, next); err != nil {
						return err
					}
					fmt.Println("Password reset. Sign in with 'ledgerctl login'.")
					return nil
				},
			},
		},
	}
}

func employeesCommand(ctx context.Context, getApp appFunc) *Command {
	var in api.EmployeeInput
	return &Command{
		Name:    "employees",
		Summary: "List or add employees (managers only)",
		Subcommands: []*Command{
			{
				Name:    "list",
				Summary: "List employees",
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					list, err := a.api.Employees(ctx)
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					defer tw.Flush()
					fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tPHONE")
					for _, u := range list {
						fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, u.FullName, u.Email, u.Phone)
					}
					return nil
				},
			},
			{
				Name:    "add",
				Summary: "Create an employee account",
				Flags: func() *pflag.FlagSet {
					fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
					fs.StringVarP(&in.Email, "email", "e", "", "employee email")
					fs.StringVar(&in.FullName, "name", "", "full name")
					fs.StringVar(&in.Phone, "phone", "", "phone number")
					return fs
				},
				Run: func(args []string) error {
					a, err := getApp()
					if err != nil {
						return err
					}
					if in.Email, err = valueOrPrompt(strings.TrimSpace(in.Email), "Email: "); err != nil {
						return err
					}
					if in.FullName, err = valueOrPrompt(in.FullName, "Full name: "); err != nil {
						return err
					}
					if in.Password, err = readNewPassword("Initial password: "); err != nil {
						return err
					}
					u, err := a.api.CreateEmployee(ctx, in)
					if err != nil {
						return err
					}
					fmt.Printf("Employee %s created (id %d).\n", u.Email, u.ID)
					return nil
				},
			},
		},
	}
}
