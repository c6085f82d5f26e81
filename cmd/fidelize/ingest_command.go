package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"fidelize/internal/history"
	"fidelize/internal/ingest"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir     string
		allowLandline bool
		phoneFormat   string
		chunkSize     int
		hasHeader     bool
		nameCol       int
		phoneCol      int
		emailCol      int
		pointsCol     int
		noHistory     bool
	)

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Process a contact export and write canonical CSV parts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			opts := cfg.Options()
			if cmd.Flags().Changed("allow-landline") {
				opts.AllowLandline = allowLandline
			}
			if cmd.Flags().Changed("phone-format") {
				format, ok := ingest.ParsePhoneFormat(phoneFormat)
				if !ok {
					return fmt.Errorf("invalid phone format %q (punctuated, digits or e164)", phoneFormat)
				}
				opts.PhoneFormat = format
			}
			if cmd.Flags().Changed("chunk-size") {
				opts.ChunkSize = chunkSize
			}
			if nameCol >= 0 || phoneCol >= 0 || emailCol >= 0 || pointsCol >= 0 {
				opts.Override = &ingest.Override{
					Roles: ingest.RoleMap{
						Name: nameCol, Phone: phoneCol,
						Email: emailCol, Points: pointsCol,
					},
					HasHeader: hasHeader,
				}
			}

			result, err := ingest.Run(data, opts)
			if err != nil {
				return err
			}

			dir := cfg.Ingest.OutputDir
			if cmd.Flags().Changed("output-dir") {
				dir = outputDir
			}

			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])) + "_processado"
			parts, err := ingest.WriteRecords(result.Records, base, opts.ChunkSize)
			if err != nil {
				return err
			}
			rejectedParts, err := ingest.WriteRejected(result.Rejected, base+"_rejeitados", opts.RejectedChunkSize)
			if err != nil {
				return err
			}

			for _, part := range append(parts, rejectedParts...) {
				path := filepath.Join(dir, part.Name)
				if err := os.WriteFile(path, part.Data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "wrote", path)
			}

			printSummary(cmd, result)

			if !noHistory && cfg.History.Path != "" {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("open history store: %w", err)
				}
				defer store.Close()
				if err := store.Insert(history.NewRun(filepath.Base(args[0]), result)); err != nil {
					return fmt.Errorf("record run: %w", err)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory for exported CSV parts")
	cmd.Flags().BoolVar(&allowLandline, "allow-landline", false, "Accept 10-digit landline numbers")
	cmd.Flags().StringVar(&phoneFormat, "phone-format", "", "Phone output format: punctuated, digits or e164")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Maximum rows per output part")
	cmd.Flags().BoolVar(&hasHeader, "has-header", false, "Skip the first row when using manual column flags")
	cmd.Flags().IntVar(&nameCol, "name-col", -1, "Manual zero-based column index for the name")
	cmd.Flags().IntVar(&phoneCol, "phone-col", -1, "Manual zero-based column index for the phone")
	cmd.Flags().IntVar(&emailCol, "email-col", -1, "Manual zero-based column index for the email")
	cmd.Flags().IntVar(&pointsCol, "points-col", -1, "Manual zero-based column index for loyalty points")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Skip recording this run in the history database")

	return cmd
}

func printSummary(cmd *cobra.Command, result *ingest.Result) {
	out := cmd.OutOrStdout()
	diag := result.Diagnostics

	fmt.Fprintf(out, "delimiter %q, mapping via %s", diag.Delimiter, diag.Source)
	if diag.HeaderDetected {
		fmt.Fprint(out, " (header detected)")
	}
	fmt.Fprintln(out)

	rows := [][]string{
		{"read", strconv.Itoa(result.Report.TotalRead)},
		{"valid", strconv.Itoa(result.Report.TotalValid)},
	}
	for _, reason := range []ingest.RejectReason{
		ingest.ReasonNoNumber, ingest.ReasonInvalidPhone, ingest.ReasonInvalidFormat,
	} {
		if n := result.Report.Rejections[reason]; n > 0 {
			rows = append(rows, []string{"rejected: " + string(reason), strconv.Itoa(n)})
		}
	}
	for _, reason := range []ingest.RejectReason{
		ingest.ReasonInvalidEmail, ingest.ReasonInvalidPoints,
	} {
		if n := result.Report.Sanitized[reason]; n > 0 {
			rows = append(rows, []string{"sanitized: " + string(reason), strconv.Itoa(n)})
		}
	}
	fmt.Fprintln(out, renderTable([]string{"Metric", "Rows"}, rows, 2))

	if diag.ReviewNeeded {
		fmt.Fprintln(out, "review recommended:")
		for _, reason := range diag.ReviewReasons {
			fmt.Fprintln(out, "  -", reason)
		}
	}
}
