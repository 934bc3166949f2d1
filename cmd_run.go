package main

import (
	"os"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ascon-fpga/cxof-harness/lib/channel"
	"github.com/ascon-fpga/cxof-harness/lib/codec"
	"github.com/ascon-fpga/cxof-harness/lib/config"
	"github.com/ascon-fpga/cxof-harness/lib/corpus"
	"github.com/ascon-fpga/cxof-harness/lib/harness"
	"github.com/ascon-fpga/cxof-harness/lib/oracle"
)

var (
	runSingle    int
	runLimit     int
	runNoCompare bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the known-answer corpus against the device",
	Long: `run parses the vector file, sends each vector to the device over the
configured framing, and compares the device digest against the corpus MD
field (or the reference binary when a vector carries none). Vectors whose
fields exceed the framing's width are skipped, not failed. The process
exits 1 when any vector fails.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	f := runCmd.Flags()
	f.String("vectors", config.Defaults.Vectors.Path, "known-answer vector file")
	must(viper.BindPFlag("vectors.path", f.Lookup("vectors")))
	f.IntVar(&runSingle, "single", -1, "run only the vector with this Count index")
	f.IntVar(&runLimit, "limit", 0, "run at most this many vectors")
	f.BoolVar(&runNoCompare, "no-compare", false, "print device digests without comparing")
}

// loadCorpus reads and parses a vector file. Shared by run and check.
func loadCorpus(path string) ([]corpus.Vector, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("cannot read vector file: %w", err)
	}
	return corpus.Parse(string(text))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := config.CurrentConfig()
	framing, err := codec.ParseFraming(cfg.Protocol.Framing)
	if err != nil {
		return err
	}

	vectors, err := loadCorpus(cfg.Vectors.Path)
	if err != nil {
		return err
	}
	if runSingle >= 0 {
		var picked []corpus.Vector
		for _, v := range vectors {
			if v.Index == runSingle {
				picked = append(picked, v)
			}
		}
		if len(picked) == 0 {
			return oops.Errorf("vector %d not found in %s", runSingle, cfg.Vectors.Path)
		}
		vectors = picked
	}
	if runLimit > 0 && len(vectors) > runLimit {
		vectors = vectors[:runLimit]
	}

	ch, err := channel.Open(cfg.Serial.Port, cfg.Serial.Baud, cfg.Serial.Settle)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil {
			log.WithError(cerr).Warn("closing channel")
		}
	}()

	runner := &harness.Runner{
		Conn:          ch,
		Oracle:        &oracle.Invoker{Bin: cfg.Oracle.Bin, Timeout: cfg.Oracle.Timeout},
		Framing:       framing,
		OutBytes:      cfg.Protocol.OutBytes,
		Rounds:        cfg.Protocol.Rounds,
		Timeout:       cfg.Serial.ReadTimeout,
		SendGo:        cfg.Protocol.SendGo,
		RequireDigest: true,
		NoCompare:     runNoCompare,
	}
	report, err := runner.Run(cmd.Context(), vectors)
	if err != nil {
		return err
	}
	if report.Failed() {
		return errRunFailed
	}
	return nil
}
