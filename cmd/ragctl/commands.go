package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirillkom/campus-rag-assistant/internal/core/domain"
	"github.com/kirillkom/campus-rag-assistant/internal/core/ports"
)

type serviceFactory func(logLevel string) (ports.DocumentQueryService, error)

func newRootCmd(newService serviceFactory) *cobra.Command {
	var (
		logLevel string
		asJSON   bool
	)

	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Query campus academic documents from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level written to stderr: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "Print the raw JSON result")

	service := func() (ports.DocumentQueryService, error) {
		return newService(logLevel)
	}
	root.AddCommand(
		newAskCmd(service, &asJSON),
		newSearchCmd(service, &asJSON),
		newDecomposeCmd(service),
		newReloadCmd(service),
	)
	return root
}

func newAskCmd(service func() (ports.DocumentQueryService, error), asJSON *bool) *cobra.Command {
	var multiHop bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question with numbered citations",
		Example: `  ragctl ask "Apa syarat yudisium?"
  ragctl ask --multi-hop "Bagaimana prosedur cuti akademik?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			question := strings.Join(args, " ")

			answerFn := svc.AnswerSingleHop
			if multiHop {
				answerFn = svc.AnswerMultiHop
			}
			answer, err := answerFn(cmd.Context(), question, nil)
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), answer)
			}
			printAnswer(cmd.OutOrStdout(), answer)
			return nil
		},
	}
	cmd.Flags().BoolVar(&multiHop, "multi-hop", false, "Decompose the question into four aspects before retrieval")
	return cmd
}

func newSearchCmd(service func() (ports.DocumentQueryService, error), asJSON *bool) *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run hybrid BM25 and vector retrieval",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			results, err := svc.RetrieveHybrid(cmd.Context(), strings.Join(args, " "), topK)
			if err != nil {
				return err
			}
			if *asJSON {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results.")
				return nil
			}
			for i, r := range results {
				fmt.Fprintf(out, "%d. %s #%d  score=%.4f\n   %s\n", i+1, r.SourceFile, r.ChunkIndex, r.Score, preview(r.Text))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 8, "Number of fused results")
	return cmd
}

func newDecomposeCmd(service func() (ports.DocumentQueryService, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "decompose <question>",
		Short: "Show the four aspect sub-questions for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			d, err := svc.DecomposeQuery(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), d)
		},
	}
}

func newReloadCmd(service func() (ports.DocumentQueryService, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Rebuild the lexical index from the vector store and report its size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := service()
			if err != nil {
				return err
			}
			stats, err := svc.ReloadIndex(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "lexical index: %d points\n", stats.Points)
			return nil
		},
	}
}

func printAnswer(out io.Writer, answer *domain.Answer) {
	fmt.Fprintln(out, answer.Text)
	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Sources:")
	for _, src := range answer.Sources {
		fmt.Fprintf(out, "  %s %s #%d\n", src.Ref, src.SourceFile, src.ChunkIndex)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > 160 {
		return string(r[:160]) + "..."
	}
	return text
}
