package cli

import (
	"fmt"
	"os"
	"strings"

	"leadboard/internal/api"
	"leadboard/internal/format"
	"leadboard/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const defaultPageSize = 10

type App struct {
	APIBaseURL string
	Token      string
	Workspace  string
	PrettyJSON bool
	Format     string
	LogLevel   string
	Trace      bool

	cfg *store.GlobalConfig
	log *logrus.Logger
	tp  *sdktrace.TracerProvider
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "leadboard",
		Short:        "Kanban board client for the lead CRM",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the board for the current workspace
  leadboard

  # Scriptable commands
  leadboard boards list
  leadboard leads move <lead-id> --to <board-id> --position 0

  # Local mock CRM for development
  leadboard dev-server --addr :8085 --seed
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive board.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.init(cmd)
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		if app.tp != nil {
			return app.tp.Shutdown(cmd.Context())
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.APIBaseURL, "api", envOr("LEADBOARD_API", ""), "CRM API base URL (overrides apiBaseUrl in config.json)")
	cmd.PersistentFlags().StringVar(&app.Token, "token", envOr("LEADBOARD_TOKEN", ""), "Bearer token (overrides token in config.json)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("LEADBOARD_WORKSPACE", ""), "Workspace id (overrides currentWorkspace in config.json)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("LEADBOARD_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("LEADBOARD_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.Trace, "trace", envOr("LEADBOARD_TRACE", "") != "", "Log a span for every API request")

	cmd.AddCommand(newWorkspacesCmd(app))
	cmd.AddCommand(newBoardsCmd(app))
	cmd.AddCommand(newLeadsCmd(app))
	cmd.AddCommand(newMovesCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newDevServerCmd(app))

	return cmd
}

// init loads config.json and fills unset flags from it. Flags and env win over the file.
func (app *App) init(cmd *cobra.Command) error {
	cfg, err := store.LoadConfig()
	if err != nil {
		return writeErr(cmd, err)
	}
	app.cfg = cfg
	if app.APIBaseURL == "" {
		app.APIBaseURL = cfg.APIBaseURL
	}
	if app.Token == "" {
		app.Token = cfg.Token
	}
	if app.Workspace == "" {
		app.Workspace = cfg.CurrentWorkspace
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(app.LogLevel))
	if err != nil {
		return writeErr(cmd, fmt.Errorf("invalid --log-level: %w", err))
	}
	app.log = logrus.New()
	app.log.SetOutput(cmd.ErrOrStderr())
	app.log.SetLevel(level)
	if app.Trace {
		if level < logrus.InfoLevel {
			app.log.SetLevel(logrus.InfoLevel)
		}
		app.tp = api.NewLogTracerProvider(app.log)
	}
	return nil
}

func (app *App) pageSize() int {
	if app.cfg != nil && app.cfg.PageSize > 0 {
		return app.cfg.PageSize
	}
	return defaultPageSize
}

func (app *App) client() (*api.Client, error) {
	if strings.TrimSpace(app.APIBaseURL) == "" {
		return nil, errNoAPI
	}
	opts := []api.Option{api.WithToken(app.Token), api.WithLogger(app.log)}
	if app.tp != nil {
		opts = append(opts, api.WithTracerProvider(app.tp))
	}
	return api.New(app.APIBaseURL, opts...)
}

func (app *App) workspaceID() (string, error) {
	id := strings.TrimSpace(app.Workspace)
	if id == "" {
		return "", errNoWorkspace
	}
	return id, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
