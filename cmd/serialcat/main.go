// Command serialcat hosts a serial device and prints every received
// batch to stdout. Lines typed on stdin are written to the device.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"
	"gopkg.in/yaml.v3"

	"github.com/thabofletcher/serialhost"
)

type fileConfig struct {
	Port     string `yaml:"port"`
	Baud     int    `yaml:"baud"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`
	// IdleTimeout is a Go duration string, e.g. "5s".
	IdleTimeout string `yaml:"idle_timeout"`
	LogFile     string `yaml:"log_file"`
}

func main() {
	device := flag.String("device", "/dev/ttyUSB0", "serial device path")
	baud := flag.Int("baud", 9600, "baud rate")
	dataBits := flag.Int("databits", 8, "data bits (5-8)")
	parity := flag.String("parity", "N", "parity (N,E,O,M,S)")
	stopBits := flag.Int("stopbits", 1, "stop bits (1 or 2)")
	idleTimeout := flag.Duration("idle-timeout", 0, "report when the link is silent this long (0 disables)")
	configPath := flag.String("config", "", "optional YAML config file")
	logFile := flag.String("log-file", "", "also log conditions to this rotating file")
	listPorts := flag.Bool("list-ports", false, "list available serial ports and exit")
	verbose := flag.BoolP("verbose", "v", false, "debug logging")
	flag.Parse()

	if *listPorts {
		ports, err := serialhost.AvailablePorts()
		if err != nil {
			fmt.Fprintf(os.Stderr, "list ports: %v\n", err)
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	if *configPath != "" {
		fc, err := loadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		if err := applyFileConfig(fc, device, baud, dataBits, parity, stopBits, idleTimeout, logFile); err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}

	logger := buildLogger(*logFile, *verbose)

	cfg := serialhost.Config{
		PortName:    *device,
		BaudRate:    serialhost.BaudRate(*baud),
		DataBits:    serialhost.DataBits(*dataBits),
		IdleTimeout: *idleTimeout,
		OnData: func(text string) {
			fmt.Print(text)
		},
		Logger: &logger,
	}

	var err error
	if cfg.Parity, err = parseParity(*parity); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if cfg.StopBits, err = parseStopBits(*stopBits); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	host, err := serialhost.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "start: %v\n", err)
		os.Exit(1)
	}

	logger.Info().Str("device", *device).Int("baud", *baud).Msg("hosting serial device")

	// Forward stdin lines to the device until EOF or a signal.
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			host.WriteLine(line)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	if err := host.Close(); err != nil {
		logger.Error().Err(err).Msg("shutdown")
	}

	snap := host.MetricsSnapshot()
	logger.Info().
		Int64("bytes_read", snap.BytesRead).
		Int64("bytes_written", snap.BytesWritten).
		Int64("batches", snap.Batches).
		Int64("restarts", snap.Restarts).
		Msg("session summary")
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc := &fileConfig{}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return fc, nil
}

// applyFileConfig fills in values the command line left at defaults.
func applyFileConfig(fc *fileConfig, device *string, baud, dataBits *int, parity *string, stopBits *int, idleTimeout *time.Duration, logFile *string) error {
	if fc.Port != "" && !flag.CommandLine.Changed("device") {
		*device = fc.Port
	}
	if fc.Baud != 0 && !flag.CommandLine.Changed("baud") {
		*baud = fc.Baud
	}
	if fc.DataBits != 0 && !flag.CommandLine.Changed("databits") {
		*dataBits = fc.DataBits
	}
	if fc.Parity != "" && !flag.CommandLine.Changed("parity") {
		*parity = fc.Parity
	}
	if fc.StopBits != 0 && !flag.CommandLine.Changed("stopbits") {
		*stopBits = fc.StopBits
	}
	if fc.IdleTimeout != "" && !flag.CommandLine.Changed("idle-timeout") {
		d, err := time.ParseDuration(fc.IdleTimeout)
		if err != nil {
			return fmt.Errorf("idle_timeout: %w", err)
		}
		*idleTimeout = d
	}
	if fc.LogFile != "" && !flag.CommandLine.Changed("log-file") {
		*logFile = fc.LogFile
	}
	return nil
}

func buildLogger(logFile string, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	if logFile != "" {
		w = zerolog.MultiLevelWriter(w, &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		})
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func parseParity(p string) (serialhost.Parity, error) {
	switch strings.ToUpper(p) {
	case "N":
		return serialhost.ParityNone, nil
	case "E":
		return serialhost.ParityEven, nil
	case "O":
		return serialhost.ParityOdd, nil
	case "M":
		return serialhost.ParityMark, nil
	case "S":
		return serialhost.ParitySpace, nil
	}
	return 0, fmt.Errorf("unsupported parity %q (use N,E,O,M,S)", p)
}

func parseStopBits(n int) (serialhost.StopBits, error) {
	switch n {
	case 1:
		return serialhost.StopBits1, nil
	case 2:
		return serialhost.StopBits2, nil
	}
	return 0, fmt.Errorf("unsupported stopbits %d (use 1 or 2)", n)
}
