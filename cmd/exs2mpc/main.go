// Package main is the entry point for the exs2mpc CLI
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samplecraft/exs2mpc/pkg/api"
	"github.com/samplecraft/exs2mpc/pkg/codec"
	"github.com/samplecraft/exs2mpc/pkg/codec/exs"
	"github.com/samplecraft/exs2mpc/pkg/codec/mpc"
	"github.com/samplecraft/exs2mpc/pkg/model"
	"github.com/samplecraft/exs2mpc/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile       string
	searchDepth      int
	preferFolderName bool
	logUnsupported   bool
	quiet            bool
	serverPort       int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "exs2mpc",
	Short: "Convert sampler instrument presets between EXS and XPM keygroup formats",
	Long: `exs2mpc converts sample-based instrument presets between the
chunk-framed binary instrument format (.exs) and the XML keygroup
program format (.xpm).

Sample files referenced by a preset are resolved next to it first, then
by a bounded search of ancestor folders, with missing metadata recovered
from the WAV headers.

Examples:
  exs2mpc convert piano.exs -o piano.xpm
  exs2mpc exs2xpm piano.exs
  exs2mpc xpm2exs "Deep Keys.xpm" --prefer-folder-name
  exs2mpc inspect piano.exs
  exs2mpc tui
  exs2mpc serve --port 8080`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Auto-detect and convert between formats",
	Long:  `Automatically detects the input format and converts to the format implied by the output file extension.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var exs2xpmCmd = &cobra.Command{
	Use:   "exs2xpm <input.exs>",
	Short: "Convert a binary instrument to a keygroup program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDirected(args[0], codec.FormatEXS, codec.FormatXPM, ".xpm")
	},
}

var xpm2exsCmd = &cobra.Command{
	Use:   "xpm2exs <input.xpm>",
	Short: "Convert a keygroup program to a binary instrument",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDirected(args[0], codec.FormatXPM, codec.FormatEXS, ".exs")
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input>",
	Short: "Decode a preset and print its structure",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return tui.Run()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Starting API server on port %d...\n", serverPort)
		return api.StartServer(serverPort)
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&searchDepth, "search-depth", 3, "Ancestor folders to search for sample files")
	rootCmd.PersistentFlags().BoolVar(&preferFolderName, "prefer-folder-name", false, "Name the instrument after its folder instead of the embedded name")
	rootCmd.PersistentFlags().BoolVar(&logUnsupported, "log-unsupported", false, "Report every ignored or defaulted attribute")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress conversion diagnostics")

	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (required)")
	_ = convertCmd.MarkFlagRequired("output")

	exs2xpmCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .xpm file path")
	xpm2exsCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .exs file path")

	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(exs2xpmCmd)
	rootCmd.AddCommand(xpm2exsCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func newConverter() *codec.Converter {
	conv := codec.New(exs.New(), mpc.New())
	opts := codec.DefaultOptions()
	opts.SampleSearchDepth = searchDepth
	opts.PreferFolderName = preferFolderName
	opts.LogUnsupported = logUnsupported
	if !quiet {
		opts.Notify = func(level codec.Level, format string, args ...any) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", level, fmt.Sprintf(format, args...))
		}
	}
	conv.SetOptions(opts)
	return conv
}

func getOutputPath(input, defaultExt string) string {
	if outputFile != "" {
		return outputFile
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + defaultExt
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	conv := newConverter()

	fmt.Printf("Converting %s -> %s\n", input, outputFile)
	if err := conv.ConvertFile(input, outputFile); err != nil {
		return err
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runDirected(input string, from, to codec.Format, defaultExt string) error {
	output := getOutputPath(input, defaultExt)
	conv := newConverter()

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	result, err := conv.Convert(data, from, to, input)
	if err != nil {
		return err
	}

	if err := os.WriteFile(output, result, 0644); err != nil {
		return err
	}

	fmt.Printf("Converted %s -> %s\n", input, output)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	input := args[0]

	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	format := codec.DetectFormat(input)
	if format == codec.FormatUnknown {
		format = codec.DetectFormatFromContent(data)
	}
	conv := newConverter()
	cd, ok := conv.Codec(format)
	if !ok {
		return fmt.Errorf("unrecognized preset format: %s", input)
	}

	opts := codec.DefaultOptions()
	opts.BaseDir = filepath.Dir(input)
	opts.SampleSearchDepth = searchDepth
	in, err := cd.Decode(data, opts)
	if err != nil {
		return err
	}

	printInstrument(in)
	return nil
}

func printInstrument(in *model.Instrument) {
	fmt.Printf("Instrument: %q (%d groups, %d zones)\n", in.Name, len(in.Groups), in.ZoneCount())
	if f := in.GlobalFilter; f != nil {
		fmt.Printf("  Filter: %s %d-pole, cutoff %.0f Hz, resonance %.1f dB\n", f.Type, f.Poles, f.Cutoff, f.Resonance)
	}
	for _, g := range in.Groups {
		trigger := "attack"
		if g.Trigger == model.TriggerRelease {
			trigger = "release"
		}
		fmt.Printf("  Group %q (%s, %d zones)\n", g.Name, trigger, len(g.Zones))
		for _, z := range g.Zones {
			sample := "<none>"
			if z.Sample != nil {
				sample = z.Sample.Name
			}
			fmt.Printf("    key %d-%d root %d vel %d-%d  %s", z.KeyLow, z.KeyHigh, z.KeyRoot, z.VelocityLow, z.VelocityHigh, sample)
			if z.Play == model.PlayRoundRobin {
				fmt.Printf("  rr#%d", z.SeqPosition)
			}
			if len(z.Loops) > 0 {
				fmt.Printf("  loop %d-%d", z.Loops[0].Start, z.Loops[0].End)
			}
			fmt.Println()
		}
	}
}
