// cli реализует консольного клиента каталога catalog-browse: постраничный
// просмотр списков через контроллер pager поверх HTTP API или mock-набора.
package cli

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

// Источники данных для команды list.
const (
	SourceRemote = "remote"
	SourceMock   = "mock"
)

type globalFlags struct {
	apiURL  string
	verbose bool
}

// NewRootCmd создаёт корневую команду catalog-browse. Вывод пишется в out,
// диагностические логи - в errOut.
func NewRootCmd(out, errOut io.Writer) *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "catalog-browse",
		Short:         "Browse catalog lists page by page",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.apiURL, "api-url", "http://localhost:8080", "catalog HTTP API base URL")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logs to stderr")

	root.SetOut(out)
	root.SetErr(errOut)

	root.AddCommand(
		newListCmd(&g),
		newGetCmd(&g),
		newCollectionCmd(&g),
	)

	return root
}

func (g *globalFlags) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
