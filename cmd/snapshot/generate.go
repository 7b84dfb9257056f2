package main

import (
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/wippyai/worker-sdk/component"
	"github.com/wippyai/worker-sdk/entity"
	"github.com/wippyai/worker-sdk/improbable"
	"github.com/wippyai/worker-sdk/native/local"
	"github.com/wippyai/worker-sdk/snapshot"
)

type generateOptions struct {
	workerType string
	entities   int
	spacing    float64
}

func newGenerateCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &generateOptions{}

	cmd := &cobra.Command{
		Use:   "generate <path>",
		Short: "Write a default snapshot",
		Long: `Write a snapshot holding a spawner entity (id 1) and, with --entities,
additional entities laid out on a square grid.

Every entity carries Position, Persistence, Metadata and an EntityAcl that
lets workers of --worker-type read it and write its Position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.entities < 1 {
				return fmt.Errorf("--entities must be at least 1")
			}
			n, err := generate(args[0], rootOpts.reg, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entities to %s\n", n, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.workerType, "worker-type", "RustWorker", "worker type granted read and write access")
	cmd.Flags().IntVar(&opts.entities, "entities", 1, "number of entities, including the spawner")
	cmd.Flags().Float64Var(&opts.spacing, "spacing", 10, "grid spacing between entities")

	return cmd
}

func generate(path string, reg *component.Registry, opts *generateOptions) (int, error) {
	rt := local.New()
	defer rt.Close()

	out, err := snapshot.Create(rt, path)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	side := int(math.Ceil(math.Sqrt(float64(opts.entities))))
	for i := range opts.entities {
		entityType := "Cell"
		if i == 0 {
			entityType = "Spawner"
		}
		coords := improbable.Coordinates{
			X: float64(i%side) * opts.spacing,
			Z: float64(i/side) * opts.spacing,
		}
		e, err := newEntity(rt, reg, entityType, coords, opts.workerType)
		if err != nil {
			return i, err
		}
		err = out.Write(int64(i+1), e)
		e.Close()
		if err != nil {
			return i, err
		}
	}
	return out.Written(), out.Close()
}

func newEntity(rt *local.Runtime, reg *component.Registry, entityType string, coords improbable.Coordinates, workerType string) (*entity.Entity, error) {
	e := entity.New(reg)
	acl := improbable.EntityAcl{
		ReadAcl: improbable.RequireAny(workerType),
		ComponentWriteAcl: map[uint32]improbable.WorkerRequirementSet{
			improbable.PositionID: improbable.RequireAll(workerType),
		},
	}
	steps := []func() error{
		func() error {
			return entity.Add(e, rt, improbable.PositionComponent, improbable.Position{Coords: coords})
		},
		func() error {
			return entity.Add(e, rt, improbable.PersistenceComponent, improbable.Persistence{})
		},
		func() error {
			return entity.Add(e, rt, improbable.MetadataComponent, improbable.Metadata{EntityType: entityType})
		},
		func() error {
			return entity.Add(e, rt, improbable.EntityAclComponent, acl)
		},
	}
	for _, step := range steps {
		if err := step(); err != nil {
			e.Close()
			return nil, err
		}
	}
	return e, nil
}
