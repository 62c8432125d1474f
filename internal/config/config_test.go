package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxonet/utxonet/internal/crypto"
)

func parse(t *testing.T, args []string) (Config, error) {
	t.Helper()
	fs := BuildFlagSet()
	require.NoError(t, fs.Parse(args))
	v, err := BuildViper(fs)
	require.NoError(t, err)
	return New(v)
}

func TestDefaults(t *testing.T) {
	priv, pub, err := crypto.GenerateWallet()
	require.NoError(t, err)

	cfg, err := parse(t, []string{"--private-key", string(priv)})
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9065", cfg.Address())
	assert.Equal(t, pub, cfg.PublicKey)
	assert.Equal(t, DefaultGenesisKey, cfg.GenesisKey)
	assert.Equal(t, uint64(DefaultGenesisAmount), cfg.GenesisAmount)
	assert.Empty(t, cfg.RemoteValidator)
}

func TestDefaultGenesisKeyDecodes(t *testing.T) {
	// The placeholder must stay a decodable PKCS#1 DER key, not just an
	// opaque address string.
	_, err := DefaultGenesisKey.RSAKey()
	require.NoError(t, err)
}

func TestPrivateKeyRequired(t *testing.T) {
	_, err := parse(t, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private-key")
}

func TestPublicKeyMustMatchPrivate(t *testing.T) {
	priv, _, err := crypto.GenerateWallet()
	require.NoError(t, err)
	_, otherPub, err := crypto.GenerateWallet()
	require.NoError(t, err)

	_, err = parse(t, []string{"--private-key", string(priv), "--public-key", string(otherPub)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestEnvOverride(t *testing.T) {
	priv, _, err := crypto.GenerateWallet()
	require.NoError(t, err)
	t.Setenv("UTXONET_PORT", "9200")
	t.Setenv("UTXONET_REMOTE_VALIDATOR", "10.0.0.1:9065")

	cfg, err := parse(t, []string{"--private-key", string(priv)})
	require.NoError(t, err)
	assert.Equal(t, uint16(9200), cfg.Port)
	assert.Equal(t, "10.0.0.1:9065", cfg.RemoteValidator)
}

func TestFlagsOverrideGenesis(t *testing.T) {
	priv, _, err := crypto.GenerateWallet()
	require.NoError(t, err)
	_, genesisPub, err := crypto.GenerateWallet()
	require.NoError(t, err)

	cfg, err := parse(t, []string{
		"--private-key", string(priv),
		"--genesis-key", string(genesisPub),
		"--genesis-amount", "250",
	})
	require.NoError(t, err)
	assert.Equal(t, genesisPub, cfg.GenesisKey)
	assert.Equal(t, uint64(250), cfg.GenesisAmount)
}
