// Package config provides configuration management for the harness.
//
// Settings live in $HOME/.cxof-harness/config.yaml (created with defaults
// on first run) and can be overridden per-invocation by command-line
// flags, which cobra binds onto the same viper keys. The key space:
//
//	serial.port, serial.baud, serial.read_timeout, serial.settle
//	protocol.framing, protocol.rounds, protocol.out_bytes, protocol.send_go
//	oracle.bin, oracle.timeout
//	vectors.path
//
// CurrentConfig() snapshots the keys into a typed Config so the rest of
// the harness never reads viper directly.
package config
