// Command ukf runs the unscented Kalman filter over a lidar/radar
// measurement log or a live serial stream, writing one estimate per
// measurement and summarising accuracy and NIS consistency.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/sensorfusion/internal/version"
)

var (
	inPath     = flag.String("in", "", "Measurement file to read (- for stdin)")
	outPath    = flag.String("out", "", "Estimate output file (default stdout)")
	configPath = flag.String("config", "", "Path to a JSON tuning file (defaults are built in)")
	dbPath     = flag.String("db", "", "SQLite database to record the run in")
	plotDir    = flag.String("plot-dir", "", "Directory for trajectory.png and nis.html")
	serialPort = flag.String("serial", "", "Read measurements from this serial port instead of -in")
	baudRate   = flag.Int("baud", 19200, "Serial baud rate")
	batchSize  = flag.Int("batch", 500, "Estimates per database transaction")
	quiet      = flag.Bool("quiet", false, "Suppress per-cycle diagnostics")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(version.String())
		return
	}

	if *inPath == "" && *serialPort == "" {
		log.Fatal("one of -in or -serial is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		InPath:     *inPath,
		OutPath:    *outPath,
		ConfigPath: *configPath,
		DBPath:     *dbPath,
		PlotDir:    *plotDir,
		SerialPort: *serialPort,
		BaudRate:   *baudRate,
		BatchSize:  *batchSize,
		Quiet:      *quiet,
	}

	sum, err := run(ctx, opts, os.Stdout)
	if err != nil {
		log.Fatalf("ukf: %v", err)
	}
	sum.log()
}
