package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Dev-KrishnaPathak/Patiently/internal/adapters/driving/files"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/domain"
	"github.com/Dev-KrishnaPathak/Patiently/internal/core/ports/driving"
)

const timeLayout = "2006-01-02 15:04"

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage uploaded documents",
	Long:    `Upload, list, inspect and delete medical documents.`,
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentsList,
}

var documentsUploadCmd = &cobra.Command{
	Use:   "upload [file...]",
	Short: "Upload documents for analysis",
	Long: `Uploads PDF, JPEG or PNG files (up to 10 MB each) for analysis.
Use --wait to block until every upload has been analysed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDocumentsUpload,
}

var documentsAnalysisCmd = &cobra.Command{
	Use:   "analysis [doc-id]",
	Short: "Show the analysis of a document",
	Long:  `Shows the analysis of a document, waiting for it when the backend is still processing.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsAnalysis,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

var documentsTrendsCmd = &cobra.Command{
	Use:   "trends [doc-id]",
	Short: "Show how a test changed across documents",
	Long: `Without --test, lists the tests found in the document.
With --test, shows that test's values across every uploaded document.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentsTrends,
}

var (
	uploadWait    bool
	deleteYes     bool
	trendTestName string
)

func init() {
	documentsUploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "Wait for the analyses to finish")
	documentsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking for confirmation")
	documentsTrendsCmd.Flags().StringVarP(&trendTestName, "test", "t", "", "Test name to follow")

	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsUploadCmd)
	documentsCmd.AddCommand(documentsAnalysisCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	documentsCmd.AddCommand(documentsTrendsCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, _ []string) error {
	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		if err := rt.Orchestrator.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		docs := rt.Orchestrator.Projection().State.Documents
		if len(docs) == 0 {
			cmd.Println("No documents uploaded yet.")
			return nil
		}

		for i := range docs {
			printDocument(cmd, docs[i])
		}
		cmd.Printf("Total: %d documents\n", len(docs))
		return nil
	})
}

func printDocument(cmd *cobra.Command, doc domain.DocumentRecord) {
	cmd.Printf("  %s\n", doc.ID)
	cmd.Printf("    File:     %s\n", doc.Filename)
	cmd.Printf("    Type:     %s\n", doc.DisplayType())
	cmd.Printf("    Status:   %s\n", doc.Status.Label())
	if !doc.UploadTime.IsZero() {
		cmd.Printf("    Uploaded: %s\n", doc.UploadTime.Local().Format(timeLayout))
	}
	cmd.Println()
}

func runDocumentsUpload(cmd *cobra.Command, args []string) error {
	handles, err := files.OpenAll(args)
	if err != nil {
		return err
	}

	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		report, submitErr := rt.Orchestrator.Drop(ctx, handles)
		if report == nil {
			return fmt.Errorf("upload failed: %w", submitErr)
		}

		for _, res := range report.Results {
			switch {
			case res.Err != nil:
				cmd.Printf("  x %s: %v\n", res.Filename, res.Err)
			case res.Record != nil:
				cmd.Printf("  + %s uploaded as %s\n", res.Filename, res.Record.ID)
			default:
				cmd.Printf("  + %s uploaded\n", res.Filename)
			}
		}

		uploaded := report.Uploaded()
		if uploadWait && len(uploaded) > 0 {
			cmd.Println("\nWaiting for analysis...")
			if err := rt.Orchestrator.AwaitPolls(ctx); err != nil {
				return fmt.Errorf("waiting for analysis: %w", err)
			}

			state := rt.Orchestrator.Projection().State
			for _, rec := range uploaded {
				if cur, ok := state.Document(rec.ID); ok {
					rec = cur
				}
				cmd.Printf("  %s: %s\n", rec.Filename, rec.Status.Label())
			}
		}

		if failed := report.Failed(); len(failed) > 0 {
			return fmt.Errorf("%d of %d files failed to upload", len(failed), len(report.Results))
		}
		return nil
	})
}

func runDocumentsAnalysis(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		if err := rt.Orchestrator.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}
		if doc, ok := rt.Orchestrator.Projection().State.Document(id); ok && doc.Status == domain.StatusFailed {
			return fmt.Errorf("analysis of %s failed on the backend", doc.Filename)
		}

		analysis, err := rt.Orchestrator.Analysis(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get analysis: %w", err)
		}
		printAnalysis(cmd, analysis)
		return nil
	})
}

func printAnalysis(cmd *cobra.Command, a *domain.AnalysisResult) {
	cmd.Printf("Analysis: %s\n\n", a.DocumentID)
	if a.DocumentType != "" {
		cmd.Printf("  Type:     %s\n", a.DocumentType)
	}
	cmd.Printf("  Overall:  %s\n", a.OverallStatus)
	cmd.Printf("  Findings: %d normal, %d to monitor, %d urgent\n", a.NormalCount, a.MonitorCount, a.UrgentCount)
	if a.OverallSummary != "" {
		cmd.Printf("\n  %s\n", a.OverallSummary)
	}

	if len(a.Findings) > 0 {
		cmd.Println("\nFindings:")
		for _, f := range a.Findings {
			line := fmt.Sprintf("  [%s] %s %s", f.Status, f.TestName, f.Value)
			if f.NormalRange != "" {
				line += fmt.Sprintf(" (normal %s)", f.NormalRange)
			}
			cmd.Println(line)
			if f.PlainEnglish != "" {
				cmd.Printf("      %s\n", f.PlainEnglish)
			}
			for _, r := range f.Recommendations {
				cmd.Printf("      - %s\n", r)
			}
		}
	}

	if len(a.Questions) > 0 {
		cmd.Println("\nQuestions for your doctor:")
		for _, q := range a.Questions {
			cmd.Printf("  [%s] %s\n", q.Priority, q.Question)
		}
	}
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		if err := rt.Orchestrator.Refresh(ctx); err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		var confirm driving.ConfirmFunc = driving.AlwaysConfirm
		if !deleteYes {
			confirm = promptConfirm(cmd)
		}

		deleted, err := rt.Orchestrator.Delete(ctx, id, confirm)
		if err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		if !deleted {
			cmd.Println("Cancelled.")
			return nil
		}
		cmd.Printf("Document %s deleted.\n", id)
		return nil
	})
}

// errNotInteractive is returned when a confirmation cannot be asked.
var errNotInteractive = errors.New("stdin is not a terminal; use --yes to confirm")

// promptConfirm asks on the command's input. Reading the real stdin
// requires a terminal so scripts never block on a hidden prompt.
func promptConfirm(cmd *cobra.Command) driving.ConfirmFunc {
	return func(_ context.Context, prompt string) (bool, error) {
		in := cmd.InOrStdin()
		if f, ok := in.(*os.File); ok && f == os.Stdin && !term.IsTerminal(int(f.Fd())) {
			return false, errNotInteractive
		}

		cmd.Printf("%s [y/N]: ", prompt)
		answer, err := readLine(bufio.NewReader(in))
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}

func readLine(reader *bufio.Reader) (string, error) {
	input, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func runDocumentsTrends(cmd *cobra.Command, args []string) error {
	id := args[0]
	return withRuntime(cmd, func(ctx context.Context, rt *Runtime) error {
		report, err := rt.Orchestrator.Trends(ctx, id, trendTestName)
		if err != nil {
			return fmt.Errorf("failed to get trends: %w", err)
		}

		if trendTestName == "" {
			if len(report.AvailableTests) == 0 {
				cmd.Println("No tests found in this document.")
				return nil
			}
			cmd.Println("Available tests:")
			for _, name := range report.AvailableTests {
				cmd.Printf("  %s\n", name)
			}
			return nil
		}

		cmd.Printf("Trend: %s\n\n", report.TestName)
		if len(report.Points) == 0 {
			cmd.Println("No values recorded for this test.")
			return nil
		}
		for _, p := range report.Points {
			value := p.ValueText
			if p.Value != nil {
				value = fmt.Sprintf("%g", *p.Value)
			}
			cmd.Printf("  %s  %-12s %s\n", p.Date.Format("2006-01-02"), value, p.Status)
		}
		if report.Direction != "" {
			change := ""
			if report.PercentageChange != nil {
				change = fmt.Sprintf(" (%+.1f%%)", *report.PercentageChange)
			}
			cmd.Printf("\nDirection: %s%s\n", report.Direction, change)
		}
		return nil
	})
}
