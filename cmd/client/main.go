package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/diarykeeper/internal/client/cli"
	"github.com/dmitrijs2005/diarykeeper/internal/client/config"
	"github.com/dmitrijs2005/diarykeeper/internal/flagx"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx, flagx.CommandArgs(os.Args[1:], config.GlobalFlags)); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			log.Printf("%v", err)
			os.Exit(2)
		}
		log.Fatalf("%v", err)
	}
}
