package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"faceplay.klederson.com/internal/app"
	"faceplay.klederson.com/internal/ar"
	"faceplay.klederson.com/internal/bluetooth"
	"faceplay.klederson.com/internal/config"
)

var (
	flagDemo           bool
	flagAdapter        string
	flagConfig         string
	flagConnectTimeout time.Duration
	flagLogFile        string
	flagLogLevel       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "faceplay",
		Short: "FacePlay - face-tracked game with BLE controller pairing",
		Long: `FacePlay runs a face-tracking game screen in the terminal and lets you
pair a Bluetooth Low Energy controller from a manual connection flow.

Requires sudo or CAP_NET_ADMIN capability for real Bluetooth scanning.
Use --demo flag for demonstration mode with simulated peripherals and a
simulated face.`,
		SilenceUsage: true,
		RunE:         run,
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&flagDemo, "demo", false, "Run in demo mode (no Bluetooth or camera required)")
	flags.StringVar(&flagAdapter, "adapter", "", "Bluetooth adapter to use (default hci0)")
	flags.StringVar(&flagConfig, "config", "", "Config file (default ~/.config/faceplay/config.yaml)")
	flags.DurationVar(&flagConnectTimeout, "connect-timeout", 0, "Give up on a connection attempt after this long (default 10s)")
	flags.StringVar(&flagLogFile, "log-file", "", "Log file, or \"stderr\"")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newScanCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(flagConfig)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("demo") {
		cfg.Demo = flagDemo
	}
	if flags.Changed("adapter") {
		cfg.Adapter = flagAdapter
	}
	if flags.Changed("connect-timeout") {
		cfg.ConnectTimeout = flagConnectTimeout
	}
	if flags.Changed("log-file") {
		cfg.Log.File = flagLogFile
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = flagLogLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newAdapter(cfg *config.Config, logger *logrus.Logger) bluetooth.Adapter {
	if cfg.Demo {
		return bluetooth.NewDemoAdapter()
	}
	return bluetooth.NewTinyGoAdapter(logger)
}

func newProvider(cfg *config.Config, logger *logrus.Logger) ar.Provider {
	if cfg.Demo {
		return ar.NewSimulatedProvider(ar.DefaultSimulatedOptions(), logger)
	}
	return ar.Unsupported{}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closeLog, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	logger.WithFields(logrus.Fields{
		"version": config.AppVersion,
		"adapter": cfg.Adapter,
		"demo":    cfg.Demo,
	}).Info("Starting")

	adapter := newAdapter(cfg, logger)
	if err := adapter.Enable(); err != nil {
		fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
		fmt.Fprintln(os.Stderr, "Bluetooth scanning requires elevated permissions.")
		fmt.Fprintln(os.Stderr, "Try one of:")
		fmt.Fprintln(os.Stderr, "  sudo ./faceplay")
		fmt.Fprintln(os.Stderr, "  sudo setcap cap_net_admin+ep ./faceplay")
		fmt.Fprintln(os.Stderr, "  ./faceplay --demo    (demo mode, no hardware needed)")
		return err
	}

	model := app.New(cfg, adapter, newProvider(cfg, logger), logger)

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithFPS(30),
	)
	model.Attach(p)

	_, err = p.Run()
	if err != nil {
		logger.WithError(err).Error("Program exited with error")
	}
	return err
}
