package main

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"rqmstats/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config (default: config.yaml if present)")
	flag.Parse()

	fmt.Println("=== Configuration check ===")
	fmt.Println("")

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadConfig(*configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Configuration loaded")
	fmt.Println("")

	// Пароль в выводе скрыт
	out, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		fmt.Printf("❌ Failed to render configuration: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Effective settings:")
	fmt.Println(string(out))

	failed := false
	if err := cfg.Validate(); err != nil {
		fmt.Printf("❌ Server/store settings: %v\n", err)
		failed = true
	} else {
		fmt.Println("✅ Server/store settings valid")
	}

	if err := cfg.ValidateCredentials(); err != nil {
		fmt.Printf("⚠️  Source credentials: %v (ingest will not run)\n", err)
	} else {
		fmt.Println("✅ Source credentials present")
	}

	fmt.Println("")
	fmt.Println("=== Check finished ===")
	if failed {
		os.Exit(1)
	}
}
