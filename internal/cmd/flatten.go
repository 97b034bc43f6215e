package cmd

import (
	"fmt"
	"strings"

	"github.com/bjaus/flatjson"
	"github.com/bjaus/flatjson/internal/job"
	"github.com/bjaus/flatjson/internal/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const stdio = "-"

type flattenFlags struct {
	output        string
	format        string
	separator     string
	arrays        string
	path          string
	stripNewlines bool
	index         bool
	indexHeader   string
	delimiter     string
	border        string
	maxWidth      int
	noHeader      bool
}

func newFlattenCmd(fs afero.Fs) *cobra.Command {
	var f flattenFlags
	cmd := &cobra.Command{
		Use:   "flatten [input]",
		Short: "Flatten one JSON document into a table",
		Long: "Flatten one JSON document into a table. The input is read from the given path, or from stdin " +
			"when the path is omitted or \"-\". Output goes to stdout unless --output names a file, which is " +
			"written only if the whole conversion succeeds.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := stdio
			if len(args) == 1 {
				input = args[0]
			}
			return runFlatten(cmd, fs, f, input)
		},
	}

	formats := make([]string, 0, len(flatjson.Formats()))
	for _, format := range flatjson.Formats() {
		formats = append(formats, format.String())
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", stdio, `output file, "-" for stdout`)
	cmd.Flags().StringVarP(&f.format, "format", "f", string(flatjson.CSV),
		fmt.Sprintf("output format: %s, or go-template=<template>", strings.Join(formats, ", ")))
	cmd.Flags().StringVar(&f.separator, "separator", flatjson.DefaultSeparator, "separator between key path segments in column names")
	cmd.Flags().StringVar(&f.arrays, "arrays", flatjson.ArrayIndex.String(), "array handling: index (one column per element) or json (one cell of JSON)")
	cmd.Flags().StringVar(&f.path, "path", "", `path of the value to unbundle into rows, e.g. "entry"; default is the document root`)
	cmd.Flags().BoolVar(&f.stripNewlines, "strip-newlines", false, "remove line breaks from string values")
	cmd.Flags().BoolVar(&f.index, "index", false, "prepend a row index column")
	cmd.Flags().StringVar(&f.indexHeader, "index-header", "", "header of the index column")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", "CSV field delimiter")
	cmd.Flags().StringVar(&f.border, "border", "rounded", "table border style: rounded, none, ascii, heavy, double")
	cmd.Flags().IntVar(&f.maxWidth, "max-width", 0, "truncate table cells wider than this; 0 means no limit")
	cmd.Flags().BoolVar(&f.noHeader, "no-header", false, "omit the header row")
	must(cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(formats, cobra.ShellCompDirectiveNoFileComp)))

	return cmd
}

func (f flattenFlags) options() (flatjson.Format, flatjson.Options, flatjson.WriteOptions, error) {
	format, err := flatjson.ParseFormat(f.format)
	if err != nil {
		return "", flatjson.Options{}, flatjson.WriteOptions{}, err
	}
	arrays, err := flatjson.ParseArrayPolicy(f.arrays)
	if err != nil {
		return "", flatjson.Options{}, flatjson.WriteOptions{}, err
	}
	border, err := flatjson.ParseBorderStyle(f.border)
	if err != nil {
		return "", flatjson.Options{}, flatjson.WriteOptions{}, err
	}
	delim := []rune(f.delimiter)
	if len(delim) != 1 {
		return "", flatjson.Options{}, flatjson.WriteOptions{}, fmt.Errorf("delimiter must be a single character, got %q", f.delimiter)
	}
	if f.separator == "" {
		return "", flatjson.Options{}, flatjson.WriteOptions{}, fmt.Errorf("separator must not be empty")
	}

	opts := flatjson.Options{
		Separator:     f.separator,
		Arrays:        arrays,
		Path:          f.path,
		StripNewlines: f.stripNewlines,
	}
	wopts := flatjson.WriteOptions{
		Delimiter:   delim[0],
		NoHeader:    f.noHeader,
		Index:       f.index,
		IndexHeader: f.indexHeader,
		Border:      border,
		MaxWidth:    f.maxWidth,
	}
	return format, opts, wopts, nil
}

func runFlatten(cmd *cobra.Command, fs afero.Fs, f flattenFlags, input string) error {
	logLevel, err := cmd.Flags().GetString(logging.Flag)
	if err != nil {
		return err
	}
	log := logging.New(logging.Options{Level: logLevel, Format: logging.TextFormat, Out: cmd.ErrOrStderr()})

	format, opts, wopts, err := f.options()
	if err != nil {
		return err
	}
	conv := job.NewConverter(fs, format, opts, wopts, log)

	var res job.Result
	switch {
	case input != stdio && f.output != stdio:
		res, err = conv.ConvertFile(input, f.output)
	case f.output != stdio:
		res, err = conv.ConvertToFile(cmd.InOrStdin(), f.output)
	case input != stdio:
		in, oerr := fs.Open(input)
		if oerr != nil {
			return &flatjson.IOError{Op: "open", Path: input, Err: oerr}
		}
		defer in.Close()
		res, err = conv.Convert(in, cmd.OutOrStdout())
	default:
		res, err = conv.Convert(cmd.InOrStdin(), cmd.OutOrStdout())
	}
	if err != nil {
		return err
	}
	log.Info("Flattened document", "input", input, "output", f.output, "rows", res.Rows, "columns", res.Columns)
	return nil
}
