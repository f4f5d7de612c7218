package cmd

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/testserver"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local fixture server",
	Long: `Start a local HTTP server with fixed routes to try requests against:

  GET    /               "test: GET" (every method echoes its name)
  GET    /headers        request headers as JSON
  GET    /qs             query parameters as JSON
  POST   /body           request body as text
  POST   /form           form fields as JSON
  PUT    /json           request JSON echoed back
  GET    /redirect       302 to /
  GET    /chunked        "fizzbazz" in two chunks
  GET    /status/{code}  empty response with that status

Examples:
  rqn serve
  rqn serve --port 8080 --delay 50ms`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

var (
	servePortFlag  int
	serveDelayFlag string
)

func init() {
	serveCmd.Flags().IntVarP(&servePortFlag, "port", "p", getEnvInt("RQN_PORT", 3000), "Port to listen on (env: RQN_PORT)")
	serveCmd.Flags().StringVar(&serveDelayFlag, "delay", "0s", "Delay before every response")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	delay, err := time.ParseDuration(serveDelayFlag)
	if err != nil {
		return withExitCode(ExitUsageError, fmt.Errorf("invalid delay %q: %w", serveDelayFlag, err))
	}

	server := testserver.NewServer(
		testserver.WithPort(servePortFlag),
		testserver.WithDelay(delay),
		testserver.WithLogger(logger),
	)

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Fprintf(cmd.ErrOrStderr(), "Serving fixtures on http://localhost:%d (press Ctrl+C to stop)\n", servePortFlag)
	return server.Start(ctx)
}
