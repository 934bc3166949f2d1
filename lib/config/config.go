package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ascon-fpga/cxof-harness/lib/util/logger"
)

var (
	// CfgFile is an explicit config file path supplied on the command
	// line; empty means the default search path.
	CfgFile string

	log = logger.GetLogger()
)

const harnessBaseDir = ".cxof-harness"

// Config is an immutable snapshot of the harness configuration.
type Config struct {
	Serial   SerialConfig
	Protocol ProtocolConfig
	Oracle   OracleConfig
	Vectors  VectorsConfig
}

// SerialConfig describes the device link.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyUSB0 or COM3.
	Port string
	Baud int
	// ReadTimeout bounds each response read.
	ReadTimeout time.Duration
	// Settle is the post-open delay before the first exchange; freshly
	// reset gateware needs a moment before its UART listens.
	Settle time.Duration
}

// ProtocolConfig selects the wire framing and digest parameters.
type ProtocolConfig struct {
	// Framing is one of "compact", "extended", "lines".
	Framing string
	// Rounds is the permutation round count (oracle argv, ROUNDS line).
	Rounds int
	// OutBytes is the digest length for vectors that do not imply one.
	OutBytes int
	// SendGo appends the GO terminator in the lines framing.
	SendGo bool
}

// OracleConfig locates the trusted reference binary.
type OracleConfig struct {
	Bin     string
	Timeout time.Duration
}

// VectorsConfig locates the known-answer corpus.
type VectorsConfig struct {
	Path string
}

// InitConfig wires viper: explicit file when given, otherwise the default
// search path, with defaults applied and a starter file created on first
// run.
func InitConfig() {
	if CfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(CfgFile)
	} else {
		viper.AddConfigPath(buildHarnessDirPath())
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	handleConfigFile()
}

func setDefaults() {
	viper.SetDefault("serial.port", Defaults.Serial.Port)
	viper.SetDefault("serial.baud", Defaults.Serial.Baud)
	viper.SetDefault("serial.read_timeout", Defaults.Serial.ReadTimeout)
	viper.SetDefault("serial.settle", Defaults.Serial.Settle)

	viper.SetDefault("protocol.framing", Defaults.Protocol.Framing)
	viper.SetDefault("protocol.rounds", Defaults.Protocol.Rounds)
	viper.SetDefault("protocol.out_bytes", Defaults.Protocol.OutBytes)
	viper.SetDefault("protocol.send_go", Defaults.Protocol.SendGo)

	viper.SetDefault("oracle.bin", Defaults.Oracle.Bin)
	viper.SetDefault("oracle.timeout", Defaults.Oracle.Timeout)

	viper.SetDefault("vectors.path", Defaults.Vectors.Path)
}

// CurrentConfig snapshots the active viper settings into a typed Config.
func CurrentConfig() Config {
	return Config{
		Serial: SerialConfig{
			Port:        viper.GetString("serial.port"),
			Baud:        viper.GetInt("serial.baud"),
			ReadTimeout: viper.GetDuration("serial.read_timeout"),
			Settle:      viper.GetDuration("serial.settle"),
		},
		Protocol: ProtocolConfig{
			Framing:  viper.GetString("protocol.framing"),
			Rounds:   viper.GetInt("protocol.rounds"),
			OutBytes: viper.GetInt("protocol.out_bytes"),
			SendGo:   viper.GetBool("protocol.send_go"),
		},
		Oracle: OracleConfig{
			Bin:     viper.GetString("oracle.bin"),
			Timeout: viper.GetDuration("oracle.timeout"),
		},
		Vectors: VectorsConfig{
			Path: viper.GetString("vectors.path"),
		},
	}
}

func createDefaultConfig(defaultConfigDir string) {
	defaultConfigFile := filepath.Join(defaultConfigDir, "config.yaml")
	// Ensure directory exists
	if err := os.MkdirAll(defaultConfigDir, 0o755); err != nil {
		log.Fatalf("Could not create config directory: %s", err)
	}

	if err := viper.WriteConfigAs(defaultConfigFile); err != nil {
		log.Fatalf("Could not write default config file: %s", err)
	}

	log.Debugf("Created default configuration at: %s", defaultConfigFile)
}

func handleConfigFile() {
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if CfgFile != "" {
				log.Fatalf("Config file %s is not found: %s", CfgFile, err)
			} else {
				createDefaultConfig(buildHarnessDirPath())
			}
		} else {
			log.Fatalf("Error reading config file: %s", err)
		}
	} else {
		log.Debugf("Using config file: %s", viper.ConfigFileUsed())
	}
}

func buildHarnessDirPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.WithError(err).Warn("cannot resolve home directory, using cwd")
		home = "."
	}
	return filepath.Join(home, harnessBaseDir)
}
