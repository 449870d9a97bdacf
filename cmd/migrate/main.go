package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"pdfdesk/pkg/config"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/storage"
)

func main() {
	flags := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	configPath := flags.String("config", "", "config file")
	to := flags.String("to", "", "target backend: file or sqlite (empty upgrades in place)")
	toPath := flags.String("to-data-path", "", "target data directory (default: data_path)")
	flags.String("data_path", "", "source data directory")
	flags.String("storage.backend", "", "source backend")
	flags.Usage = func() {
		fmt.Println("Usage: migrate [--to file|sqlite] [--to-data-path DIR] [--data_path DIR] [--storage.backend file|sqlite]")
		flags.PrintDefaults()
	}
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("pdfdesk storage migration")
	fmt.Println("=========================")
	fmt.Printf("Source: %s at %s\n", cfg.Storage.Backend, cfg.DataPath)

	src, err := kvstore.Open(cfg.Storage.Backend, cfg.DataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open source store: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	target := src
	if *to != "" {
		dir := *toPath
		if dir == "" {
			dir = cfg.DataPath
		}
		if *to == cfg.Storage.Backend && dir == cfg.DataPath {
			fmt.Fprintln(os.Stderr, "Source and target are the same store")
			os.Exit(1)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}
		dst, err := kvstore.Open(*to, dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open target store: %v\n", err)
			os.Exit(1)
		}
		defer dst.Close()

		fmt.Printf("Target: %s at %s\n", *to, dir)
		n, err := kvstore.Copy(dst, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Copy failed after %d keys: %v\n", n, err)
			os.Exit(1)
		}
		fmt.Printf("Copied %d keys\n", n)
		target = dst
	}

	upgraded, err := storage.Upgrade(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upgrade failed: %v\n", err)
		os.Exit(1)
	}
	if len(upgraded) == 0 {
		fmt.Println("All collections already use the current format")
	}
	for _, key := range upgraded {
		fmt.Printf("Upgraded %s\n", key)
	}
	fmt.Println("Migration completed successfully!")
}
