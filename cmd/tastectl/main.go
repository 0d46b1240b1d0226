package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"tastefun/cmd/internal/passphrase"
	"tastefun/config"
	"tastefun/crypto"
	"tastefun/rpc/middleware"
)

const (
	defaultPassEnv  = "TASTE_KEY_PASS"
	defaultConfig   = "./config.toml"
	defaultKeystore = "operator.keystore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "address":
		err = runAddress(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "params":
		err = runParams(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: tastectl <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  keygen   create an operator key in an encrypted keystore")
	fmt.Fprintln(os.Stderr, "  address  print the address held by a keystore")
	fmt.Fprintln(os.Stderr, "  token    mint an API bearer token for a keystore's address")
	fmt.Fprintln(os.Stderr, "  params   print the protocol parameters of a config file")
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	keystorePath := fs.String("keystore", defaultKeystore, "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	fs.Parse(args)

	if !*force {
		if _, err := os.Stat(*keystorePath); err == nil {
			return fmt.Errorf("keystore file %s already exists (use --force to overwrite)", *keystorePath)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	pass, err := passphrase.NewSource(*passEnv).WithConfirmation().Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, pass); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	fmt.Printf("Wrote %s\n", *keystorePath)
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func loadKey(path, passEnv string) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(passEnv).Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("failed to open keystore %s: %w", path, err)
	}
	return key, nil
}

func runAddress(args []string) error {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	keystorePath := fs.String("keystore", defaultKeystore, "Path to the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	fs.Parse(args)

	key, err := loadKey(*keystorePath, *passEnv)
	if err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

// runToken mints a token for the keystore's address. Possession of the
// keystore stands in for proof of identity since the API only checks the
// HMAC signature.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the tastefund config file")
	keystorePath := fs.String("keystore", defaultKeystore, "Path to the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	ttl := fs.Duration("ttl", 0, "Token lifetime (defaults to the configured TokenTTLSeconds)")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	key, err := loadKey(*keystorePath, *passEnv)
	if err != nil {
		return err
	}
	lifetime := *ttl
	if lifetime <= 0 {
		lifetime = time.Duration(cfg.Auth.TokenTTLSeconds) * time.Second
	}
	token, err := middleware.IssueToken(cfg.Auth.HMACSecret, cfg.Auth.Issuer, cfg.Auth.Audience, key.PubKey().Address(), lifetime, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runParams(args []string) error {
	fs := flag.NewFlagSet("params", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "Path to the tastefund config file")
	format := fs.String("format", "toml", "Output format: toml or json")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg.Protocol)
	case "toml":
		return toml.NewEncoder(os.Stdout).Encode(cfg.Protocol)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}
