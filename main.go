package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ascon-fpga/cxof-harness/lib/config"
	"github.com/ascon-fpga/cxof-harness/lib/util/logger"
	"github.com/ascon-fpga/cxof-harness/lib/util/signals"
)

var log = logger.GetLogger()

// errRunFailed marks a completed run with a non-zero failure count; the
// process exits 1 without re-printing anything (the summary already went
// to stdout). All other errors exit 2.
var errRunFailed = errors.New("run failed")

var rootCmd = &cobra.Command{
	Use:   "cxof-harness",
	Short: "Differential test harness for a CXOF hardware accelerator",
	Long: `cxof-harness drives a CXOF (customizable XOF) hardware accelerator over
a serial link, replays known-answer vectors, and checks the device's
digests byte-for-byte against the trusted reference binary.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(config.InitConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.CfgFile, "config", "", "config file (default $HOME/.cxof-harness/config.yaml)")
	pf.String("port", config.Defaults.Serial.Port, "serial port (e.g. /dev/ttyUSB0 or COM3)")
	pf.Int("baud", config.Defaults.Serial.Baud, "baud rate")
	pf.Duration("timeout", config.Defaults.Serial.ReadTimeout, "per-read response deadline")
	pf.String("framing", config.Defaults.Protocol.Framing, "wire framing: compact, extended or lines")
	pf.Int("rounds", config.Defaults.Protocol.Rounds, "permutation rounds")
	pf.String("bin", config.Defaults.Oracle.Bin, "path to the reference binary")

	must(viper.BindPFlag("serial.port", pf.Lookup("port")))
	must(viper.BindPFlag("serial.baud", pf.Lookup("baud")))
	must(viper.BindPFlag("serial.read_timeout", pf.Lookup("timeout")))
	must(viper.BindPFlag("protocol.framing", pf.Lookup("framing")))
	must(viper.BindPFlag("protocol.rounds", pf.Lookup("rounds")))
	must(viper.BindPFlag("oracle.bin", pf.Lookup("bin")))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	signals.RegisterInterruptHandler(signals.Handler(cancel))
	go signals.Handle()
	defer signals.StopHandle()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, errRunFailed) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
