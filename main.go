package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pdfdesk/pkg/auth"
	"pdfdesk/pkg/config"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/types"
)

var log = logging.Logger("pdfdesk")

var (
	cfgFile   string
	appConfig *config.Config
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	defaults := config.Defaults()

	root := &cobra.Command{
		Use:           "pdfdesk",
		Short:         "PDF desk with a PIN-gated admin document area",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), cfgFile)
			if err != nil {
				return err
			}
			if err := applyLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			appConfig = cfg
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: pdfdesk.yaml in the user config dir, /etc/pdfdesk or .)")
	flags.String("data_path", defaults["data_path"].(string), "directory holding the durable store")
	flags.String("storage.backend", defaults["storage.backend"].(string), "durable store backend: file, sqlite or memory")
	flags.String("listen_addr", defaults["listen_addr"].(string), "HTTP listen address")
	flags.String("log_level", defaults["log_level"].(string), "log level: debug, info, warn or error")
	flags.String("static_dir", defaults["static_dir"].(string), "directory served under /static")

	root.AddCommand(newServeCmd(), newPINCmd(), newStatusCmd(), newLogoutCmd(), newConfigCmd())
	return root
}

func applyLogLevel(level string) error {
	lvl, err := logging.LevelFromString(level)
	if err != nil {
		return err
	}
	logging.SetAllLoggers(lvl)
	return nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := NewApp(appConfig)
			if err := app.Startup(cmd.Context()); err != nil {
				return err
			}
			defer app.Shutdown()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Serve(ctx)
		},
	}
}

// openSession opens the configured store and restores the persisted session
// the way a page load does
func openSession(out io.Writer) (*auth.Manager, kvstore.Store, error) {
	store, err := kvstore.Open(appConfig.Storage.Backend, appConfig.DataPath)
	if err != nil {
		return nil, nil, err
	}
	printer := &terminalSignals{out: out}
	session := auth.NewManager(store, auth.Options{Signals: printer, Notifier: printer})
	session.RestoreOnLoad()
	return session, store, nil
}

func closeSession(session *auth.Manager, store kvstore.Store) {
	session.Close()
	if err := store.Close(); err != nil {
		log.Warnf("Closing store: %v", err)
	}
}

func newPINCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin",
		Short: "Enter the admin PIN and persist a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			session, store, err := openSession(out)
			if err != nil {
				return err
			}
			defer closeSession(session, store)

			if session.IsAuthenticated() {
				printStatus(out, session)
				return nil
			}

			session.RequestLogin()
			pin, err := readPIN(cmd.InOrStdin(), out)
			if err != nil {
				return fmt.Errorf("failed to read PIN: %w", err)
			}
			if err := session.SubmitPIN(pin); err != nil {
				return err
			}
			printStatus(out, session)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the persisted admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, store, err := openSession(io.Discard)
			if err != nil {
				return err
			}
			defer closeSession(session, store)
			printStatus(cmd.OutOrStdout(), session)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the persisted admin session",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			session, store, err := openSession(io.Discard)
			if err != nil {
				return err
			}
			defer closeSession(session, store)
			session.Logout()
			printStatus(out, session)
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config file:     %s\n", orNone(appConfig.File))
			fmt.Fprintf(out, "data_path:       %s\n", appConfig.DataPath)
			fmt.Fprintf(out, "storage.backend: %s\n", appConfig.Storage.Backend)
			fmt.Fprintf(out, "listen_addr:     %s\n", appConfig.ListenAddr)
			fmt.Fprintf(out, "log_level:       %s\n", appConfig.LogLevel)
			fmt.Fprintf(out, "quotes.timeout:  %s\n", appConfig.Quotes.Timeout)
			fmt.Fprintf(out, "quotes.retries:  %d\n", appConfig.Quotes.Retries)
			fmt.Fprintf(out, "static_dir:      %s\n", appConfig.StaticDir)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "write [path]",
		Short: "Write the effective configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.GetConfigFilePath()
			if len(args) == 1 {
				path = args[0]
			}
			if err := appConfig.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

// readPIN reads without echo from a terminal, or a single line otherwise
func readPIN(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Admin PIN: ")
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		pin, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		return string(pin), err
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printStatus(out io.Writer, session *auth.Manager) {
	at, _ := session.AuthenticatedAt()
	view := types.NewSessionView(session.State().String(), session.IsAuthenticated(), session.Remaining(), at)
	if !view.Authenticated {
		fmt.Fprintln(out, "Admin session: logged out")
		return
	}
	fmt.Fprintf(out, "Admin session: logged in since %s, %s remaining\n", view.AuthenticatedAt, view.Remaining)
}

// terminalSignals prints session transitions for the CLI commands
type terminalSignals struct {
	out io.Writer
}

func (s *terminalSignals) PromptPIN() {}

func (s *terminalSignals) LoginSucceeded(at time.Time, remaining time.Duration) {
	fmt.Fprintf(s.out, "Logged in at %s\n", at.Format(time.Kitchen))
}

func (s *terminalSignals) LoginFailed() {}

func (s *terminalSignals) LoggedOut(reason auth.LogoutReason) {
	log.Debugf("Session ended: %s", reason)
}

func (s *terminalSignals) Countdown(time.Duration) {}

func (s *terminalSignals) Notify(message string, severity auth.Severity) {
	fmt.Fprintf(s.out, "[%s] %s\n", severity, message)
}
