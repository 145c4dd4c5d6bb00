package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/babylonlabs-io/staking-ledger/internal/address"
	"github.com/babylonlabs-io/staking-ledger/internal/auth"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/spf13/cobra"
)

func KeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generates a caller key and prints it with its address",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			priv, err := btcec.NewPrivateKey()
			if err != nil {
				return err
			}

			fmt.Printf("private key: %s\n", hex.EncodeToString(priv.Serialize()))
			fmt.Printf("address:     %s\n", address.FromPublicKey(priv.PubKey()))
			return nil
		},
	}
}

func SignCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign <payload-json>",
		Short: "Wraps a request payload into a signed envelope for the API",
		Args:  cobra.ExactArgs(1),
		RunE:  sign,
	}

	cmd.Flags().String("key", "", "Hex encoded private key of the caller")
	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func sign(cmd *cobra.Command, args []string) error {
	keyHex, err := cmd.Flags().GetString("key")
	if err != nil {
		return err
	}
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return fmt.Errorf("invalid key: %w", err)
	}
	priv, _ := btcec.PrivKeyFromBytes(keyBytes)

	// numbers are kept verbatim, amounts may exceed float64 precision
	decoder := json.NewDecoder(strings.NewReader(args[0]))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if _, ok := payload["timestamp"]; !ok {
		payload["timestamp"] = time.Now().Unix()
	}

	req, err := auth.Sign(priv, payload)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(req)
}
