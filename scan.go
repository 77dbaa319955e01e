package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"faceplay.klederson.com/internal/bluetooth"
)

var scanDuration time.Duration

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan for BLE peripherals and print them",
		Long: `Scan for nearby Bluetooth Low Energy peripherals without starting the
game screen, then print what was found, strongest signal first.`,
		SilenceUsage: true,
		RunE:         runScan,
	}
	cmd.Flags().DurationVarP(&scanDuration, "duration", "d", 10*time.Second, "Scan duration")
	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	if scanDuration <= 0 {
		return fmt.Errorf("invalid duration %s: must be > 0", scanDuration)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	// No TUI here, so log to the terminal.
	cfg.Log.File = "stderr"
	logger, closeLog, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := bluetooth.NewPeripheralStore()
	connector := bluetooth.NewConnector(newAdapter(cfg, logger), logger, bluetooth.ConnectorOptions{
		ConnectTimeout: cfg.ConnectTimeout,
	})
	defer connector.Close()

	scanErr := make(chan error, 1)
	connector.SetHandlers(bluetooth.Handlers{
		OnDiscover: func(d bluetooth.Discovery) {
			store.UpsertDiscovery(d)
		},
		OnScanError: func(_ uint64, err error) {
			select {
			case scanErr <- err:
			default:
			}
		},
	})

	if _, err := connector.StartDiscovery(); err != nil {
		return fmt.Errorf("starting scan: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Scanning for %s...\n", scanDuration)

	select {
	case <-ctx.Done():
	case <-time.After(scanDuration):
	case err := <-scanErr:
		return fmt.Errorf("scan failed: %w", err)
	}
	connector.StopDiscovery()

	return printPeripherals(store.Snapshot())
}

func printPeripherals(peripherals []bluetooth.Peripheral) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tRSSI\tDISTANCE")
	for _, p := range peripherals {
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t~%.1fm\n", p.Address, p.DisplayName(), int(p.RSSI), p.Distance)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%d peripheral(s) found\n", len(peripherals))
	return nil
}
