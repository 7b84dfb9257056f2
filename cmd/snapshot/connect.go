package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/native/local"
	"github.com/wippyai/worker-sdk/worker"
)

type connectOptions struct {
	params     string
	workerType string
	wait       time.Duration
}

type viewEntity struct {
	Components []viewComponent `json:"components"`
	ID         int64           `json:"id"`
}

type viewComponent struct {
	Value     any    `json:"value"`
	Name      string `json:"name"`
	Authority string `json:"authority"`
	ID        uint32 `json:"id"`
}

func newConnectCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &connectOptions{}

	cmd := &cobra.Command{
		Use:   "connect <snapshot>",
		Short: "Connect a worker to a local deployment seeded from a snapshot",
		Long: `Start an in-process deployment holding the entities of a snapshot,
connect a worker to it and print the entities the worker sees, with the
worker's authority over each component.

Connection parameters come from --params (.yaml, .yml or .toml) or default
to a worker of --worker-type.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := worker.DefaultParameters(opts.workerType)
			if opts.params != "" {
				p, err := worker.LoadParameters(opts.params)
				if err != nil {
					return err
				}
				params = p
			}
			entities, err := connectAndView(cmd, rootOpts.reg, args[0], params, opts.wait)
			if err != nil {
				return err
			}
			if rootOpts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entities)
			}
			printView(cmd.OutOrStdout(), entities)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.params, "params", "", "connection parameters file")
	cmd.Flags().StringVar(&opts.workerType, "worker-type", "RustWorker", "worker type when --params is not given")
	cmd.Flags().DurationVar(&opts.wait, "wait", 100*time.Millisecond, "how long to wait for the initial ops")

	return cmd
}

func connectAndView(cmd *cobra.Command, reg *component.Registry, path string, params worker.Parameters, wait time.Duration) ([]viewEntity, error) {
	rt := local.New()
	defer rt.Close()

	if err := rt.LoadSnapshot(path); err != nil {
		return nil, err
	}

	conn, err := worker.ConnectAndWait(cmd.Context(), rt, reg, params)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	view := worker.NewView(reg)
	ops := conn.GetOpList(wait)
	for _, err := range view.Apply(ops) {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
	}
	ops.Close()

	if d, ok := view.Disconnected(); ok {
		return nil, fmt.Errorf("disconnected: %s", d.Reason)
	}
	conn.SendLog(worker.LogInfo, "snapshot", fmt.Sprintf("viewed %d entities", len(view.Entities())))

	var out []viewEntity
	for _, id := range view.Entities() {
		e := viewEntity{ID: id}
		for _, cid := range reg.IDs() {
			v, ok := view.Component(id, cid)
			if !ok {
				continue
			}
			e.Components = append(e.Components, viewComponent{
				ID:        cid,
				Name:      componentName(reg, cid),
				Value:     v,
				Authority: view.Authority(id, cid).String(),
			})
		}
		out = append(out, e)
	}
	return out, nil
}

func printView(w io.Writer, entities []viewEntity) {
	for _, e := range entities {
		fmt.Fprintf(w, "entity %d\n", e.ID)
		for _, c := range e.Components {
			fmt.Fprintf(w, "  %-24s %-14s %+v\n", c.Name, c.Authority, c.Value)
		}
	}
	fmt.Fprintf(w, "%d entities in view\n", len(entities))
}
