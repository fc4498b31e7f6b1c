package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"calldesk/internal/domain"
	"calldesk/pkg/client"

	"github.com/spf13/cobra"
)

// Session-scoped keys, alongside the per-agent presence keys the SDK owns.
const (
	keySessionAgent = "session:agent"
	keySessionToken = "session:token"
)

var errNotLoggedIn = errors.New("not logged in; run `agentctl login` first")

func openStore() (*client.SessionStore, error) {
	path := sessionPath
	if path == "" {
		var err error
		path, err = client.DefaultSessionPath()
		if err != nil {
			return nil, err
		}
	}
	return client.OpenSessionStore(path)
}

// session returns an authenticated API client and engine for the logged-in
// agent. The returned store must be closed by the caller.
func session() (*client.Client, *client.Engine, *client.SessionStore, error) {
	store, err := openStore()
	if err != nil {
		return nil, nil, nil, err
	}
	agent, ok, err := store.Get(keySessionAgent)
	if err != nil || !ok {
		store.Close()
		if err == nil {
			err = errNotLoggedIn
		}
		return nil, nil, nil, err
	}
	token, ok, err := store.Get(keySessionToken)
	if err != nil || !ok {
		store.Close()
		if err == nil {
			err = errNotLoggedIn
		}
		return nil, nil, nil, err
	}
	api := client.New(apiURL)
	api.Token = token
	engine, err := client.NewEngine(api, store, agent)
	if err != nil {
		store.Close()
		return nil, nil, nil, err
	}
	return api, engine, store, nil
}

func loginCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <agent-number>",
		Short: "Authenticate and persist the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			api := client.New(apiURL)
			res, err := api.Login(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			if err := store.Set(keySessionAgent, res.User.AgentNumber); err != nil {
				return err
			}
			if err := store.Set(keySessionToken, res.Token); err != nil {
				return err
			}
			// Server state is authoritative on login: reconcile the cached
			// presence before the agent acts on it.
			engine, err := client.NewEngine(api, store, res.User.AgentNumber)
			if err != nil {
				return err
			}
			if err := engine.Reconcile(cmd.Context()); err != nil {
				fmt.Fprintln(os.Stderr, "warning: could not reconcile status:", err)
			}
			status, _ := engine.Status()
			fmt.Printf("Logged in as %s (%s), current status: %s\n", res.User.Name, res.User.AgentNumber, status)
			return nil
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.MarkFlagRequired("password")
	return cmd
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and clear cached presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, engine, store, err := session()
			if err != nil {
				return err
			}
			defer store.Close()
			_ = api.Logout(cmd.Context())
			if err := engine.Logout(); err != nil {
				return err
			}
			if err := store.Delete(keySessionToken); err != nil {
				return err
			}
			if err := store.Delete(keySessionAgent); err != nil {
				return err
			}
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	var watch bool
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show own status, or all agents (admin); --watch polls continuously",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, engine, store, err := session()
			if err != nil {
				return err
			}
			defer store.Close()
			if !watch {
				if err := engine.Reconcile(cmd.Context()); err != nil {
					return err
				}
				status, breakStart := engine.Status()
				if breakStart != nil {
					fmt.Printf("%s (since %s)\n", status, breakStart.Format(time.Kitchen))
				} else {
					fmt.Println(status)
				}
				return nil
			}
			poller := client.NewPoller(api, interval)
			poller.OnChange = printSnapshot
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Printf("Watching agent status every %s (Ctrl-C to stop)\n", poller.Interval())
			poller.Run(ctx)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "poll all agents' status (admin)")
	cmd.Flags().DurationVar(&interval, "interval", client.DefaultPollInterval, "poll interval")
	return cmd
}

func printSnapshot(s client.Snapshot) {
	agents := make([]string, 0, len(s))
	for a := range s {
		agents = append(agents, a)
	}
	sort.Strings(agents)
	fmt.Printf("--- %s ---\n", time.Now().Format(time.TimeOnly))
	for _, a := range agents {
		marker := " "
		if s[a] == domain.StatusBreak {
			marker = "*"
		}
		fmt.Printf("%s %-8s %s\n", marker, a, s[a])
	}
}

func breakCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "break",
		Short: "Start or end a break",
	}
	var remark string
	start := &cobra.Command{
		Use:   "start",
		Short: "Go on break (remark required)",
		RunE: func(c *cobra.Command, args []string) error {
			_, engine, store, err := session()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := engine.StartBreak(c.Context(), remark); err != nil {
				var verr *client.ValidationError
				if errors.As(err, &verr) {
					return fmt.Errorf("validation failed: %w", verr)
				}
				return fmt.Errorf("break not started, status unchanged: %w", err)
			}
			_, breakStart := engine.Status()
			fmt.Printf("On break since %s\n", breakStart.Format(time.Kitchen))
			return nil
		},
	}
	start.Flags().StringVarP(&remark, "remark", "r", "", "reason for the break")
	end := &cobra.Command{
		Use:   "end",
		Short: "Return to Working",
		RunE: func(c *cobra.Command, args []string) error {
			_, engine, store, err := session()
			if err != nil {
				return err
			}
			defer store.Close()
			if err := engine.SetWorking(c.Context()); err != nil {
				return fmt.Errorf("status unchanged: %w", err)
			}
			fmt.Println("Working")
			return nil
		},
	}
	cmd.AddCommand(start, end)
	return cmd
}
