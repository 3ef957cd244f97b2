package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/logger"
)

// sessionCloseTimeout bounds index cleanup after the TUI exits.
const sessionCloseTimeout = 30 * time.Second

// newProgram creates the bubbletea program. Tests replace it.
var newProgram = func(m tea.Model) interface{ Run() (tea.Model, error) } {
	return tea.NewProgram(m, tea.WithAltScreen())
}

var tuiCmd = &cobra.Command{
	Use:   "tui <url|file>",
	Short: "Launch the interactive terminal UI",
	Long: `Ingest one document and ask questions about it interactively.

The document is fetched, chunked and indexed once; each question is then
answered from the same index. The index entries are released on exit.

Controls:
  Enter       Ask the typed question
  PgUp/PgDn   Scroll the transcript
  Ctrl+L      Clear the transcript
  Esc/Ctrl+C  Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	documentURL, err := resolveDocumentURL(args[0])
	if err != nil {
		return err
	}

	rt, err := loadRuntime(cmd, allowLocalFiles)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(&tui.Ports{Sessions: rt.Sessions}, documentURL)
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(cmd.Context())

	// Keep log lines from tearing the alt screen.
	logger.SetOutput(io.Discard)
	defer logger.SetOutput(os.Stderr)

	defer func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), sessionCloseTimeout)
		defer cancel()
		if cerr := app.Close(ctx); cerr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "releasing index entries: %v\n", cerr)
		}
	}()

	if _, err := newProgram(app).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
