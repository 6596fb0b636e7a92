package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/vaultlink/vaultlink/internal/buildinfo"
	"github.com/vaultlink/vaultlink/internal/config"
	"github.com/vaultlink/vaultlink/internal/ctl"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	app, err := ctl.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx, commandArgs(os.Args[1:])); err != nil {
		log.Fatalf("%v", err)
	}
}

// commandArgs strips flags (and their values) from the argument vector,
// leaving the command and its positional arguments. The flags themselves are
// handled by the config loaders.
func commandArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}
