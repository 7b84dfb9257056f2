package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/entity"
	"github.com/wippyai/worker-sdk/native/local"
	"github.com/wippyai/worker-sdk/resource"
	"github.com/wippyai/worker-sdk/snapshot"
)

type entityDump struct {
	Components []componentDump `json:"components"`
	ID         int64           `json:"id"`
}

type componentDump struct {
	Value any    `json:"value,omitempty"`
	Name  string `json:"name"`
	Error string `json:"error,omitempty"`
	ID    uint32 `json:"id"`
}

func newDumpCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "dump <path>",
		Short: "Print every entity of a snapshot",
		Long: `Print every entity of a snapshot with its decoded components.

Components unknown to the registry are listed by id. Pass --bundle to decode
components declared in a schema bundle.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dumps, err := readSnapshot(rootOpts.reg, args[0])
			if err != nil {
				return err
			}
			if rootOpts.format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(dumps)
			}
			printDumps(cmd.OutOrStdout(), dumps)
			return nil
		},
	}
}

// readSnapshot reads the snapshot at path and decodes every component
// with reg.
func readSnapshot(reg *component.Registry, path string) ([]entityDump, error) {
	rt := local.New()
	defer rt.Close()

	stats := &objectStats{}
	rt.Subscribe(stats)
	defer func() {
		rt.Unsubscribe(stats)
		local.Logger().Debug("snapshot read",
			zap.String("path", path),
			zap.Int64("allocated", stats.created.Load()),
			zap.Int64("freed", stats.dropped.Load()),
			zap.Int("live", rt.Live()))
	}()

	records, err := snapshot.ReadAll(rt, reg, path)
	if err != nil {
		return nil, err
	}
	dumps := make([]entityDump, 0, len(records))
	for _, r := range records {
		dumps = append(dumps, dumpEntity(reg, r.ID, r.Entity))
		r.Entity.Close()
	}
	return dumps, nil
}

// objectStats counts native allocations and frees while a snapshot is read.
type objectStats struct {
	created atomic.Int64
	dropped atomic.Int64
}

func (s *objectStats) OnResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventCreated:
		s.created.Add(1)
	case resource.EventDropped:
		s.dropped.Add(1)
	}
}

func dumpEntity(reg *component.Registry, id int64, e *entity.Entity) entityDump {
	d := entityDump{ID: id}
	for _, cid := range e.ComponentIDs() {
		c := componentDump{ID: cid, Name: componentName(reg, cid)}
		if reg.Has(cid) {
			v, err := e.Decode(cid)
			if err != nil {
				c.Error = err.Error()
			} else {
				c.Value = v
			}
		}
		d.Components = append(d.Components, c)
	}
	return d
}

func componentName(reg *component.Registry, id uint32) string {
	vt, err := reg.Lookup(id)
	if err != nil {
		return fmt.Sprintf("unknown(%d)", id)
	}
	return vt.Name()
}

func printDumps(w io.Writer, dumps []entityDump) {
	for _, d := range dumps {
		fmt.Fprintf(w, "entity %d\n", d.ID)
		for _, c := range d.Components {
			switch {
			case c.Error != "":
				fmt.Fprintf(w, "  %-24s error: %s\n", c.Name, c.Error)
			case c.Value == nil:
				fmt.Fprintf(w, "  %s\n", c.Name)
			default:
				fmt.Fprintf(w, "  %-24s %+v\n", c.Name, c.Value)
			}
		}
	}
	fmt.Fprintf(w, "%d entities\n", len(dumps))
}
