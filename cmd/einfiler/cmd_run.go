package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/ValerySidorin/einfiler/pkg/caserecord"
	"github.com/ValerySidorin/einfiler/pkg/einfiler"
	util_log "github.com/ValerySidorin/einfiler/pkg/util/log"
	"github.com/grafana/dskit/services"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <case.json>",
	Short: "File a single case record and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runCase,
}

func runCase(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "open case record")
	}
	rec, err := caserecord.Decode(f)
	f.Close()
	if err != nil {
		return err
	}

	e, err := einfiler.New(cfg, prometheus.NewRegistry(), util_log.Logger)
	if err != nil {
		return err
	}
	if err := e.InitModuleServices(einfiler.Workflow); err != nil {
		return err
	}

	ctx := cmd.Context()
	mgr, err := services.NewManager(e.Services()...)
	if err != nil {
		return errors.Wrap(err, "init service manager")
	}
	if err := mgr.StartAsync(ctx); err != nil {
		return errors.Wrap(err, "start services")
	}
	if err := mgr.AwaitHealthy(ctx); err != nil {
		return errors.Wrap(err, "await services")
	}
	defer func() {
		mgr.StopAsync()
		_ = mgr.AwaitStopped(context.Background())
	}()

	res := e.Workflow.Run(ctx, rec)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return errors.Wrap(err, "write result")
	}
	if !res.Success {
		return errors.Errorf("case %s not filed: %s", rec.RecordID, res.Identifier)
	}
	return nil
}
