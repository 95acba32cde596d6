package cmd

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shopgenie/shopgenie/internal/core/engine"
	apperrors "github.com/shopgenie/shopgenie/internal/errors"
	"github.com/shopgenie/shopgenie/internal/observability"
	"github.com/shopgenie/shopgenie/internal/output"
)

// cliUser is the rate-limit key for operator searches.
const cliUser = "cli"

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Run one marketplace search",
	Long: `Run one product search through the same pipeline the bot uses and print the
results. Use --preview to see the chat messages exactly as they would be sent.`,
	Example: `  shopgenie search wireless headphones
  shopgenie search "usb c cable" --output-format json
  shopgenie search desk lamp --preview --max-length 400`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("output-format", "table", "Output format: table, json, markdown, html")
	searchCmd.Flags().String("out", "", "Write output to a file or directory (default stdout)")
	searchCmd.Flags().Bool("preview", false, "Show the chat message chunks in boxes")
	searchCmd.Flags().Int("max-length", 0, "Override message.max_length for the preview")
	searchCmd.Flags().String("ranking", "", "Override results.ranking: none, score")
	searchCmd.Flags().Bool("fallback", false, "Serve sample results when the marketplace fails")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	query := engine.NormalizeQuery(strings.Join(args, " "))

	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	cfg, err := currentConfig()
	if err != nil {
		return apperrors.Wrap(ctx, apperrors.CodeConfigInvalid, err, "invalid configuration")
	}
	if ranking, _ := cmd.Flags().GetString("ranking"); ranking != "" {
		cfg.Results.Ranking = ranking
	}
	if fallback, _ := cmd.Flags().GetBool("fallback"); fallback {
		cfg.Fallback.Enabled = true
	}
	if maxLength, _ := cmd.Flags().GetInt("max-length"); maxLength > 0 {
		if maxLength > output.DefaultMaxLength {
			return apperrors.NewInvalidInputError(fmt.Sprintf("--max-length must not exceed %d", output.DefaultMaxLength))
		}
		cfg.Message.MaxLength = maxLength
	}

	logger := observability.CLILogger
	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}

	outcome, err := svc.Pipeline.Run(ctx, cliUser, query)
	if err != nil {
		return apperrors.FromSearchError(ctx, err)
	}
	logger.Debug("Search finished",
		zap.String("query", outcome.Query),
		zap.Int("results", len(outcome.Results)),
		zap.Int("chunks", len(outcome.Chunks)))

	out, _ := cmd.Flags().GetString("out")
	sink, err := openSink(resolveOutputPath(out, outcome.Query, format), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if preview, _ := cmd.Flags().GetBool("preview"); preview {
		_, err = fmt.Fprint(sink.writer, renderPreview(outcome))
		return err
	}

	rendered, err := output.NewFormatter(format).Format(outcome.Query, outcome.Results)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(sink.writer, rendered); err != nil {
		return err
	}
	if sink.path != "-" {
		logger.Info("Wrote search results", zap.String("path", sink.path))
	}
	return nil
}

// renderPreview boxes each outbound chunk with its rune count.
func renderPreview(outcome *engine.Outcome) string {
	var sb strings.Builder
	for i, chunk := range outcome.Chunks {
		header := fmt.Sprintf("message %d/%d (%d chars)", i+1, len(outcome.Chunks), utf8.RuneCountInString(chunk))
		sb.WriteString(ascii.DrawBox(header+"\n\n"+chunk, 0))
		sb.WriteString("\n")
	}
	return sb.String()
}
