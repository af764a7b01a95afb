// Package main provides the xlsxvalidate command: validate a workbook
// against a schema from the shell.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/workbook-validation-api/internal/config"
	"github.com/workbook-validation-api/internal/models"
	"github.com/workbook-validation-api/internal/service"
	"github.com/workbook-validation-api/internal/validation"
	"github.com/workbook-validation-api/pkg/logger"
)

// Exit codes
const (
	exitValid   = 0
	exitError   = 1
	exitInvalid = 2
)

var errInvalid = errors.New("workbook is invalid")

type options struct {
	returnData        bool
	allowExtraColumns bool
	pretty            bool
	logLevel          string
}

func main() {
	_ = godotenv.Load()
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command with args and returns the process exit code
func execute(args []string, stdout, stderr io.Writer) int {
	var opts options

	rootCmd := &cobra.Command{
		Use:   "xlsxvalidate <workbook> <schema> [output.json]",
		Short: "Validate a workbook against a schema",
		Long: `xlsxvalidate checks every sheet of an .xlsx or .csv workbook against a
JSON or YAML schema and prints the errors it finds.
The full result is written as JSON when an output path is given.`,
		Args:          cobra.RangeArgs(2, 3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args, opts, stdout, stderr)
		},
	}

	rootCmd.Flags().BoolVar(&opts.returnData, "return-data", false, "Include coerced row data in the output file")
	rootCmd.Flags().BoolVar(&opts.allowExtraColumns, "allow-extra-columns", false, "Do not warn about columns missing from the schema")
	rootCmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Pretty-print the output file")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(context.Background())
	switch {
	case err == nil:
		return exitValid
	case errors.Is(err, errInvalid):
		return exitInvalid
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitError
	}
}

func run(ctx context.Context, args []string, opts options, stdout, stderr io.Writer) error {
	workbookPath, schemaPath := args[0], args[1]

	log := logger.NewWithWriter(stderr, opts.logLevel, true)
	engine := validation.NewEngine(validation.DefaultRegistry(), log)
	svc := service.NewValidationService(nil, engine, &config.Config{}, log)

	result, err := svc.ValidateFiles(ctx, workbookPath, schemaPath, validation.Options{
		ReturnData:        opts.returnData,
		AllowExtraColumns: opts.allowExtraColumns,
	})
	if err != nil {
		return err
	}

	if len(args) == 3 {
		if err := writeResult(args[2], result, opts.pretty); err != nil {
			return err
		}
	}

	if result.Success {
		fmt.Fprintln(stdout, "workbook is valid")
		return nil
	}

	fmt.Fprintf(stderr, "validation errors (%d):\n", len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintf(stderr, "- [%s] %s -> %s\n", e.Code, location(e), e.Message)
	}
	return errInvalid
}

// location renders sheet[:row][:column]
func location(e models.ValidationError) string {
	loc := e.Sheet
	if e.Row > 0 {
		loc += fmt.Sprintf(":%d", e.Row)
	}
	if e.Column != "" {
		loc += ":" + e.Column
	}
	return loc
}

func writeResult(path string, result *models.Result, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(result, "", "  ")
	} else {
		data, err = json.Marshal(result)
	}
	if err != nil {
		return fmt.Errorf("serialize result: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
