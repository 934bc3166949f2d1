package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ascon-fpga/cxof-harness/lib/codec"
	"github.com/ascon-fpga/cxof-harness/lib/config"
	"github.com/ascon-fpga/cxof-harness/lib/hexfmt"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Print the wire packet for a vector without opening the port",
	Long: `encode is a dry run: it builds the packet for the given message, label
and output length under the configured framing and prints a structured
hex dump. Useful for checking what would hit the wire before touching
hardware.`,
	RunE: runEncode,
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	f := encodeCmd.Flags()
	f.StringVar(&sendMsg, "msg", "", "message as text")
	f.StringVar(&sendMsgHex, "msg-hex", "", "message as hex")
	f.StringVar(&sendLabel, "label", "", "label (Z) as text")
	f.StringVar(&sendLabelHex, "label-hex", "", "label (Z) as hex")
	f.IntVar(&sendOutBytes, "outbytes", 0, "output length in bytes (default from config)")
}

func runEncode(cmd *cobra.Command, args []string) error {
	cfg := config.CurrentConfig()
	framing, err := codec.ParseFraming(cfg.Protocol.Framing)
	if err != nil {
		return err
	}

	v := cliVector()
	message, err := v.Message()
	if err != nil {
		return err
	}
	label, err := v.Label()
	if err != nil {
		return err
	}
	outBytes := sendOutBytes
	if outBytes <= 0 {
		outBytes = cfg.Protocol.OutBytes
	}
	outBits := outBytes * 8

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Framing:    %s\n", framing)
	fmt.Fprintf(out, "Label:      %d bytes  %s\n", len(label), hexfmt.EncodeToString(label))
	fmt.Fprintf(out, "Message:    %d bytes  %s\n", len(message), hexfmt.EncodeToString(message))
	fmt.Fprintf(out, "Output:     %d bytes (%d bits)\n", outBytes, outBits)

	switch framing {
	case codec.Compact:
		packet, err := codec.EncodeCompact(label, message, outBytes)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Header:     %s\n", hexfmt.EncodeToString(packet[:codec.CompactHeaderLen]))
		fmt.Fprintf(out, "Packet:     %s (%d bytes)\n", hexfmt.EncodeToString(packet), len(packet))
	case codec.Extended:
		packet, err := codec.EncodeExtended(label, message, outBits)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Magic:      %s\n", codec.Magic)
		fmt.Fprintf(out, "Packet:     %s (%d bytes)\n", hexfmt.EncodeToString(packet), len(packet))
	case codec.TextLines:
		fmt.Fprintln(out, "Lines:")
		for _, line := range codec.EncodeTextLines(label, message, outBits, cfg.Protocol.Rounds, cfg.Protocol.SendGo) {
			fmt.Fprintf(out, "  %s", line)
		}
	}
	return nil
}
