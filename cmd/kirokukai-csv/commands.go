package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/adapters/csvimport"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/grade"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/meetctx"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/swimtime"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/logger"
)

// rootCommand creates the command tree.
func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "kirokukai-csv",
		Short:         "Result sheet tools for the kirokukai service",
		SilenceUsage:  true,
	}
	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	root.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		if verbose {
			return logger.SetLevelString("debug")
		}
		return nil
	}

	root.AddCommand(normalizeCommand(), timeCommand())
	return root
}

type normalizeOutput struct {
	Rows    []model.ImportRow `json:"rows"`
	Skipped int               `json:"skipped"`
}

// normalizeCommand prints the canonical rows of one or more CSV files.
func normalizeCommand() *cobra.Command {
	var (
		program string
		year    int
		month   int
		weekday string
	)
	cmd := &cobra.Command{
		Use:   "normalize FILE...",
		Short: "Normalize result CSV files into canonical rows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParseProgram(program)
			if err != nil {
				return err
			}
			mc, err := meetContextOf(year, month, weekday)
			if err != nil {
				return err
			}

			uploads := make([]csvimport.Upload, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				uploads = append(uploads, csvimport.Upload{Name: filepath.Base(path), Data: data, Context: mc})
			}

			n := csvimport.NewNormalizer(csvimport.WithLogger(logger.Named("csvimport")))
			rows, err := n.NormalizeAll(cmd.Context(), uploads)
			if err != nil {
				return err
			}
			out := normalizeOutput{Rows: rows}
			if p == model.ProgramChallenge {
				res := grade.FilterChallenge(rows, func(r model.ImportRow) string { return r.Grade })
				out.Rows, out.Skipped = res.Accepted, res.Skipped
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&program, "program", string(model.ProgramSwimming), "Program of the sheet: swimming, school or challenge")
	cmd.Flags().IntVar(&year, "year", 0, "Meet year for rosters without a meet column")
	cmd.Flags().IntVar(&month, "month", 0, "Meet month for rosters without a meet column")
	cmd.Flags().StringVar(&weekday, "weekday", "", "Meet weekday, e.g. 木曜")
	cmd.MarkFlagsRequiredTogether("year", "month")
	return cmd
}

func meetContextOf(year, month int, weekday string) (*meetctx.Context, error) {
	if year == 0 && month == 0 {
		if weekday != "" {
			return nil, errors.New("--weekday needs --year and --month")
		}
		return nil, nil
	}
	mc := &meetctx.Context{Year: year, Month: month}
	if weekday != "" {
		wd, err := meetctx.ParseWeekday(weekday)
		if err != nil {
			return nil, err
		}
		mc.Weekday = wd
	}
	if err := mc.Validate(); err != nil {
		return nil, err
	}
	return mc, nil
}

// timeCommand parses swim times and prints their milliseconds and the
// document rendering.
func timeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "time TIME...",
		Short: "Parse swim times such as 1:05.32",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, text := range args {
				ms, err := swimtime.ParseToMs(text)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", text, ms, swimtime.FormatForDocument(text, ms))
			}
			return nil
		},
	}
}
