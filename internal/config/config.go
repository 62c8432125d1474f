// Package config builds the node configuration from flags and UTXONET_*
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/utxonet/utxonet/internal/crypto"
)

const envPrefix = "UTXONET"

// DefaultGenesisAmount is the placeholder genesis funding used when no flag
// overrides it.
const DefaultGenesisAmount = 100

// Flag names.
const (
	HostKey            = "host"
	PortKey            = "port"
	PrivateKeyKey      = "private-key"
	PublicKeyKey       = "public-key"
	RemoteValidatorKey = "remote-validator"
	GenesisKeyKey      = "genesis-key"
	GenesisAmountKey   = "genesis-amount"
	MetricsPortKey     = "metrics-port"
	LogLevelKey        = "log-level"
)

// Config is the validator daemon's runtime configuration.
type Config struct {
	Host            string
	Port            uint16
	PrivateKey      crypto.PrivateKey
	PublicKey       crypto.PublicKey
	RemoteValidator string
	GenesisKey      crypto.PublicKey
	GenesisAmount   uint64
	MetricsPort     uint16
	LogLevel        string
}

// Address is the host:port this node listens on and advertises.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BuildFlagSet declares the daemon's flags.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("utxonetd", pflag.ContinueOnError)
	fs.String(HostKey, "0.0.0.0", "address to listen on")
	fs.Uint16(PortKey, 9065, "port to listen on")
	fs.String(PrivateKeyKey, "", "hex PKCS#1 DER private key of this validator")
	fs.String(PublicKeyKey, "", "hex PKCS#1 DER public key (derived from the private key when omitted)")
	fs.String(RemoteValidatorKey, "", "host:port of an existing validator to on-board with")
	fs.String(GenesisKeyKey, "", "hex public key funded by the genesis output")
	fs.Uint64(GenesisAmountKey, DefaultGenesisAmount, "amount carried by the genesis output")
	fs.Uint16(MetricsPortKey, 0, "prometheus listener port (0 disables it)")
	fs.String(LogLevelKey, "", "log level (falls back to UTXONET_LOG, then info)")
	return fs
}

// BuildViper binds an already-parsed flag set onto a viper instance backed
// by UTXONET_* environment variables.
func BuildViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// New assembles and validates the configuration.
func New(v *viper.Viper) (Config, error) {
	cfg := Config{
		Host:            v.GetString(HostKey),
		Port:            uint16(v.GetUint32(PortKey)),
		PrivateKey:      crypto.PrivateKey(v.GetString(PrivateKeyKey)),
		PublicKey:       crypto.PublicKey(v.GetString(PublicKeyKey)),
		RemoteValidator: v.GetString(RemoteValidatorKey),
		GenesisKey:      crypto.PublicKey(v.GetString(GenesisKeyKey)),
		GenesisAmount:   v.GetUint64(GenesisAmountKey),
		MetricsPort:     uint16(v.GetUint32(MetricsPortKey)),
		LogLevel:        v.GetString(LogLevelKey),
	}

	if cfg.PrivateKey == "" {
		return Config{}, fmt.Errorf("--%s is required", PrivateKeyKey)
	}
	derived, err := cfg.PrivateKey.Public()
	if err != nil {
		return Config{}, fmt.Errorf("invalid --%s: %w", PrivateKeyKey, err)
	}
	if cfg.PublicKey == "" {
		cfg.PublicKey = derived
	} else if cfg.PublicKey != derived {
		return Config{}, fmt.Errorf("--%s does not match the private key", PublicKeyKey)
	}
	if cfg.GenesisKey == "" {
		cfg.GenesisKey = DefaultGenesisKey
	}
	return cfg, nil
}

// DefaultGenesisKey is the hard-coded placeholder every node funds when no
// genesis key is configured: a real PKCS#1 DER RSA-2048 public key whose
// private half was discarded, so the default genesis output is decodable but
// unspendable. Clusters that want a spendable genesis pass the real key via
// --genesis-key on every node.
const DefaultGenesisKey = crypto.PublicKey(
	"3082010a0282010100d6409e817e4e76c68f295fb57c9dbfdb7d04702b4a05f2" +
		"73b5ec0ce2521c819241975311bda1b3618eec910683c39047ff14de0ee8e663" +
		"06b25f0c81bdb875f05a4f5c63a0d15cafd6b1401138d5c03a4680aa7c9bf57d" +
		"4ea3857fce98810578b0c75c4c6add26274e02647c0772c372c3644b20ce1fad" +
		"7e4d1460b4fee80f768e0fcdecb651000eb1f1ded55bfb07a8ff6f916ee5552d" +
		"6dfc27c98b780078f781ee8cdc81aedd97bf4142af70007812317d8cc5a280f4" +
		"e3a2f6bcf8cbdc574a5721a37b4a34a44cce9251a9a3d7f4e296383507fefc6d" +
		"9afc573c5e6d2bbff34d5eb40ae3a658d78fd33e5181f5553381d0de629caa59" +
		"8bd70820cf6437ce8b0203010001")
