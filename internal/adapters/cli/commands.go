// Package cli holds the caictl commands: offline extraction, folder scans,
// result checks and xlsx reports without the API or Postgres.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/corporate-action-intel/internal/core/domain"
	"github.com/kirillkom/corporate-action-intel/internal/core/ports"
	"github.com/kirillkom/corporate-action-intel/internal/core/usecase"
)

const (
	formatAuto = "auto"
	formatText = "text"
	formatJSON = "json"
)

type FolderScanner interface {
	ScanFolder(ctx context.Context, dir string) ([]usecase.ScanEntry, error)
}

type JSONValidator interface {
	ValidateJSON(data []byte) error
}

type Deps struct {
	Extractor ports.DocumentExtractor
	Scanner   FolderScanner
	Formats   ports.PageExtractor
	Engine    ports.KPIExtractor
	Validator JSONValidator
	Exporter  ports.ResultExporter
	// IsTerminal reports whether stdout is a terminal; auto format picks text
	// output only then.
	IsTerminal func() bool
	Version    string
}

func NewRootCommand(deps Deps) *cobra.Command {
	var format string
	root := &cobra.Command{
		Use:           "caictl",
		Short:         "Extract corporate-action KPIs from notices on disk",
		Version:       deps.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&format, "format", "o", formatAuto, "output format: auto, text or json")

	render := func(cmd *cobra.Command) (*renderer, error) {
		return newRenderer(cmd.OutOrStdout(), format, deps.IsTerminal)
	}

	root.AddCommand(
		newExtractCmd(deps, render),
		newClassifyCmd(deps, render),
		newScanCmd(deps, render),
		newCheckResultCmd(deps),
	)
	return root
}

func newExtractCmd(deps Deps, render func(*cobra.Command) (*renderer, error)) *cobra.Command {
	var withSummary bool
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Run the engine over one PDF, XLSX or text notice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := render(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return domain.WrapError(domain.ErrInvalidInput, "read file", err)
			}
			extraction, err := deps.Extractor.ExtractDocument(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			if r.json {
				if withSummary {
					return r.writeJSON(extraction)
				}
				return r.writeJSON(extraction.Result)
			}
			r.result(extraction.Result)
			if withSummary {
				r.summary(extraction.Summary)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSummary, "summary", false, "include the structured summary")
	return cmd
}

func newClassifyCmd(deps Deps, render func(*cobra.Command) (*renderer, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file>",
		Short: "Print the document type of a notice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := render(cmd)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return domain.WrapError(domain.ErrInvalidInput, "read file", err)
			}
			pages, err := deps.Formats.ExtractPages(cmd.Context(), filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			docType := deps.Engine.Classify(pages)
			if r.json {
				return r.writeJSON(map[string]any{"path": args[0], "document_type": docType})
			}
			fmt.Fprintf(r.w, "%s\t%s\n", args[0], r.docType(docType))
			return nil
		},
	}
}

func newScanCmd(deps Deps, render func(*cobra.Command) (*renderer, error)) *cobra.Command {
	var xlsxPath string
	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Run the engine over every supported file of a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := render(cmd)
			if err != nil {
				return err
			}
			entries, err := deps.Scanner.ScanFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if xlsxPath != "" {
				if err := writeReport(deps.Exporter, entries, xlsxPath); err != nil {
					return err
				}
			}
			if r.json {
				return r.writeJSON(entries)
			}
			r.scan(entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "also write an xlsx report of the successful results to this path")
	return cmd
}

func newCheckResultCmd(deps Deps) *cobra.Command {
	return &cobra.Command{
		Use:   "check-result <result.json>",
		Short: "Validate a stored result document against the published schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			if err := deps.Validator.ValidateJSON(data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", args[0])
			return nil
		},
	}
}

// readInput reads path, or stdin when path is "-".
func readInput(stdin io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "read result", err)
	}
	return data, nil
}

func writeReport(exporter ports.ResultExporter, entries []usecase.ScanEntry, path string) (err error) {
	results := make([]domain.KPIResult, 0, len(entries))
	for _, e := range entries {
		if e.Result != nil {
			results = append(results, *e.Result)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()
	return exporter.Export(results, f)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
