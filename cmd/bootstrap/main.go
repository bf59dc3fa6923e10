package main

import (
	"context"
	"log"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrijs2005/recordkeeper/internal/app"
	"github.com/dmitrijs2005/recordkeeper/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(ctx, cfg, prometheus.DefaultRegisterer)

	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
