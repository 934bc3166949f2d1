package config

import "time"

// Defaults centralizes the out-of-the-box configuration so values are easy
// to discover and adjust in one place. Serial parameters match the
// reference gateware's UART bridge; protocol values match the reference
// distribution (12-round permutation, 32-byte digest).
var Defaults = Config{
	Serial: SerialConfig{
		Port:        "/dev/ttyUSB0",
		Baud:        115200,
		ReadTimeout: 5 * time.Second,
		Settle:      500 * time.Millisecond,
	},
	Protocol: ProtocolConfig{
		Framing:  "compact",
		Rounds:   12,
		OutBytes: 32,
		SendGo:   true,
	},
	Oracle: OracleConfig{
		Bin:     "test_cxof_bits_hex",
		Timeout: 10 * time.Second,
	},
	Vectors: VectorsConfig{
		Path: "test_vector.txt",
	},
}
