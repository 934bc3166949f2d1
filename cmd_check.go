package main

import (
	"github.com/spf13/cobra"

	"github.com/ascon-fpga/cxof-harness/lib/config"
	"github.com/ascon-fpga/cxof-harness/lib/harness"
	"github.com/ascon-fpga/cxof-harness/lib/oracle"
)

var checkVectorsPath string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the corpus MDs against the reference binary, no device",
	Long: `check replays the vector file against the reference binary only: the
expected digest is each vector's MD field, the computed one comes from the
binary, and the serial port is never opened. Use it to validate a corpus
(or a rebuilt reference) before involving hardware. Vectors without an MD
are skipped. The process exits 1 when any vector fails.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkVectorsPath, "vectors", "", "known-answer vector file (default from config)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := config.CurrentConfig()
	path := checkVectorsPath
	if path == "" {
		path = cfg.Vectors.Path
	}

	vectors, err := loadCorpus(path)
	if err != nil {
		return err
	}

	runner := &harness.Runner{
		Oracle: &oracle.Invoker{Bin: cfg.Oracle.Bin, Timeout: cfg.Oracle.Timeout},
		Rounds: cfg.Protocol.Rounds,
	}
	report, err := runner.Check(cmd.Context(), vectors)
	if err != nil {
		return err
	}
	if report.Failed() {
		return errRunFailed
	}
	return nil
}
