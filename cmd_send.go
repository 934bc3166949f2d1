package main

import (
	"github.com/spf13/cobra"

	"github.com/ascon-fpga/cxof-harness/lib/channel"
	"github.com/ascon-fpga/cxof-harness/lib/codec"
	"github.com/ascon-fpga/cxof-harness/lib/config"
	"github.com/ascon-fpga/cxof-harness/lib/corpus"
	"github.com/ascon-fpga/cxof-harness/lib/harness"
	"github.com/ascon-fpga/cxof-harness/lib/hexfmt"
	"github.com/ascon-fpga/cxof-harness/lib/oracle"
)

var (
	sendMsg       string
	sendMsgHex    string
	sendLabel     string
	sendLabelHex  string
	sendOutBytes  int
	sendNoCompare bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single vector to the device",
	Long: `send exchanges one vector built from the command line. Message and label
may be given as UTF-8 text (--msg, --label) or hex (--msg-hex,
--label-hex); hex wins when both are set. Without --no-compare the
expected digest comes from the reference binary.`,
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	f := sendCmd.Flags()
	f.StringVar(&sendMsg, "msg", "", "message as text")
	f.StringVar(&sendMsgHex, "msg-hex", "", "message as hex")
	f.StringVar(&sendLabel, "label", "", "label (Z) as text")
	f.StringVar(&sendLabelHex, "label-hex", "", "label (Z) as hex")
	f.IntVar(&sendOutBytes, "outbytes", 0, "output length in bytes (default from config)")
	f.BoolVar(&sendNoCompare, "no-compare", false, "print the device digest without comparing")
}

// cliVector builds the synthetic vector shared by send and encode.
func cliVector() corpus.Vector {
	msgHex := sendMsgHex
	if msgHex == "" && sendMsg != "" {
		msgHex = hexfmt.EncodeToString([]byte(sendMsg))
	}
	labelHex := sendLabelHex
	if labelHex == "" && sendLabel != "" {
		labelHex = hexfmt.EncodeToString([]byte(sendLabel))
	}
	return corpus.Vector{MsgHex: msgHex, LabelHex: labelHex}
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg := config.CurrentConfig()
	framing, err := codec.ParseFraming(cfg.Protocol.Framing)
	if err != nil {
		return err
	}

	outBytes := sendOutBytes
	if outBytes <= 0 {
		outBytes = cfg.Protocol.OutBytes
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
		Conn:      ch,
		Oracle:    &oracle.Invoker{Bin: cfg.Oracle.Bin, Timeout: cfg.Oracle.Timeout},
		Framing:   framing,
		OutBytes:  outBytes,
		Rounds:    cfg.Protocol.Rounds,
		Timeout:   cfg.Serial.ReadTimeout,
		SendGo:    cfg.Protocol.SendGo,
		NoCompare: sendNoCompare,
	}
	report, err := runner.Run(cmd.Context(), []corpus.Vector{cliVector()})
	if err != nil {
		return err
	}
	if report.Failed() {
		return errRunFailed
	}
	return nil
}
