// Package main is the entry point for wonderswan2midi CLI
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/james-see/wonderswan2midi/pkg/api"
	"github.com/james-see/wonderswan2midi/pkg/converter"
	"github.com/james-see/wonderswan2midi/pkg/converter/devices"
	"github.com/james-see/wonderswan2midi/pkg/debuglog"
	"github.com/james-see/wonderswan2midi/pkg/tui"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	deviceName string
	ppqn       uint16
	program    uint8
	debugLog   string
	withEvents bool
	serverPort int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wonderswan2midi <input.vgm> <output.mid>",
	Short: "Convert WonderSwan VGM dumps to MIDI",
	Long: `wonderswan2midi converts a VGM register dump recorded from the
WonderSwan sound chip into a Standard MIDI file, one MIDI channel per
hardware channel.

Examples:
  wonderswan2midi song.vgm song.mid
  wonderswan2midi song.vgz song.mid --ppqn 960 --debug-log debug_output.txt
  wonderswan2midi inspect song.mid --events
  wonderswan2midi dump song.vgm
  wonderswan2midi tui
  wonderswan2midi serve --port 8080`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	Args:          cobra.ExactArgs(2),
	RunE:          runConvert,
	SilenceErrors: true,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.mid>",
	Short: "Summarise a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var dumpCmd = &cobra.Command{
	Use:   "dump <file>",
	Short: "Hex dump a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device", "d", "wonderswan", "Source sound chip (wonderswan)")
	rootCmd.PersistentFlags().Uint16Var(&ppqn, "ppqn", converter.DefaultPPQN, "MIDI ticks per quarter note")
	rootCmd.PersistentFlags().Uint8Var(&program, "program", converter.DefaultProgram, "GM program for every channel (0-127)")
	rootCmd.PersistentFlags().StringVar(&debugLog, "debug-log", "", "Write conversion diagnostics to this file")

	// inspect command
	inspectCmd.Flags().BoolVarP(&withEvents, "events", "e", false, "Print every channel event")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Server port")

	// Add commands
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

func getDevice() converter.Device {
	switch strings.ToLower(deviceName) {
	case "wonderswan", "ws", "wsc":
		return devices.NewWonderSwanDevice()
	default:
		return devices.NewWonderSwanDevice()
	}
}

// checkPaths rejects conversions the file extensions already rule out
func checkPaths(input, output string) error {
	if f := converter.DetectFormat(input); f != converter.FormatVGM {
		return fmt.Errorf("input %s is not a .vgm or .vgz file (detected %s)", input, f)
	}
	if f := converter.DetectFormat(output); f != converter.FormatMIDI {
		return fmt.Errorf("output %s must end in .mid or .midi (detected %s)", output, f)
	}
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	input, output := args[0], args[1]
	if err := checkPaths(input, output); err != nil {
		return err
	}

	logger := debuglog.OpenOrWarn(debugLog, os.Stderr)
	defer func() { _ = logger.Close() }()

	conv := converter.New(getDevice(),
		converter.WithPPQN(ppqn),
		converter.WithProgram(program),
		converter.WithLogger(logger),
	)

	fmt.Printf("Converting %s -> %s\n", input, output)
	res, err := conv.ConvertFileResult(input, output)
	if err != nil {
		return err
	}
	fmt.Printf("Conversion complete! %d events, %d samples\n", res.Events, res.Stats.Samples)
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	sum, err := converter.InspectMIDIFile(args[0], withEvents)
	if err != nil {
		return err
	}
	return converter.WriteSummary(os.Stdout, sum)
}

func runDump(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	return converter.HexDump(os.Stdout, data)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(converter.WithPPQN(ppqn), converter.WithProgram(program))
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", serverPort)
	return api.StartServer(serverPort, converter.WithPPQN(ppqn), converter.WithProgram(program))
}
