package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"blockmode-go/pkg/blockmode"
	"blockmode-go/pkg/hwsim"
	"blockmode-go/pkg/primitive"

	"github.com/urfave/cli/v2"
)

// keySalt separates passphrase derived keys of this tool from other HKDF
// users of the same passphrase.
var keySalt = []byte("blockmode-go/v1")

var keyFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "mode",
		Aliases: []string{"m"},
		Usage:   "Mode `NAME`: ecb, cbc, ofb, cfb1, cfb8, cfb, ctr, gcm",
		Value:   "gcm",
	},
	&cli.StringFlag{
		Name:  "algorithm",
		Usage: "Block cipher: aes or tdes",
		Value: "aes",
	},
	&cli.StringFlag{
		Name:    "key",
		Aliases: []string{"k"},
		Usage:   "Key as `HEX`",
	},
	&cli.StringFlag{
		Name:    "passphrase",
		Aliases: []string{"p"},
		Usage:   "Derive the key from `TEXT` with HKDF-SHA256",
		EnvVars: []string{"BLOCKMODE_PASSPHRASE"},
	},
	&cli.IntFlag{
		Name:  "key-size",
		Usage: "Derived key length in `BYTES` (16, 24, 32 for AES; 8, 16, 24 for TDES)",
		Value: 16,
	},
	&cli.IntFlag{
		Name:  "slot",
		Usage: "Burn the key into OTP `SLOT` 1-7 of the simulated peripheral and use the slot (hardware engine only)",
	},
}

// engineFor builds the configured engine. With --slot the key material is
// provisioned into the peripheral and replaced by a slot reference.
func engineFor(c *cli.Context, key primitive.Key) (*blockmode.Engine, primitive.Key, error) {
	ecfg := blockmode.Config{Handles: cfg.Handles, KeyStreamBlocks: cfg.KeyStreamBlocks}
	slot := c.Int("slot")
	if !cfg.Hardware() {
		if slot != 0 {
			return nil, key, fmt.Errorf("--slot needs the hardware engine")
		}
		return blockmode.NewSoftware(ecfg), key, nil
	}

	dev := hwsim.New(hwsim.Config{Latency: cfg.Latency})
	if slot != 0 {
		if err := dev.Provision(slot, key.Material); err != nil {
			return nil, key, err
		}
		key.Type = primitive.KeyHardwareOTP1 + primitive.KeyType(slot-1)
		key.Material = nil
	}
	return blockmode.NewHardware(dev, ecfg), key, nil
}

func keyFromFlags(c *cli.Context) (primitive.Key, error) {
	var material []byte
	switch {
	case c.IsSet("key") && c.IsSet("passphrase"):
		return primitive.Key{}, fmt.Errorf("use either --key or --passphrase")
	case c.IsSet("key"):
		b, err := hex.DecodeString(strings.TrimSpace(c.String("key")))
		if err != nil {
			return primitive.Key{}, fmt.Errorf("--key: %w", err)
		}
		material = b
	case c.IsSet("passphrase"):
		b, err := primitive.DeriveKey(c.String("passphrase"), keySalt, c.Int("key-size"))
		if err != nil {
			return primitive.Key{}, err
		}
		material = b
	default:
		return primitive.Key{}, fmt.Errorf("a key is required: --key or --passphrase")
	}

	var k primitive.Key
	switch strings.ToLower(c.String("algorithm")) {
	case "aes":
		k = primitive.AESKey(material)
	case "tdes", "3des", "des":
		k = primitive.TDESKey(material)
	default:
		return primitive.Key{}, fmt.Errorf("unknown algorithm %q", c.String("algorithm"))
	}
	return k, k.Validate()
}
