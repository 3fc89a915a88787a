package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/SIXwishlist/pulp/pkg/logger"
	"github.com/SIXwishlist/pulp/pkg/registry"
	"github.com/SIXwishlist/pulp/pkg/repounit"
	"github.com/SIXwishlist/pulp/pkg/storage"
	"github.com/SIXwishlist/pulp/pkg/storage/memory"
	"github.com/SIXwishlist/pulp/pkg/storage/mongodb"
)

const (
	repoFlag       = "repo"
	typeFlag       = "type"
	typesFlag      = "types"
	unitKeyFlag    = "unit-key"
	skipFlag       = "skip"
	limitFlag      = "limit"
	duplicatesFlag = "keep-duplicates"
	idsOnlyFlag    = "ids-only"
)

// NewQueryCommand returns the command that runs a unit association query and
// prints the merged results.
func NewQueryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Resolve the content units associated with a repository",
		RunE:  runQuery,
	}

	flags := cmd.Flags()
	flags.String(repoFlag, "", "repository id to query (required)")
	flags.String(typeFlag, "", "restrict the query to one unit type")
	flags.StringSlice(typesFlag, nil, "unit types known to the registry (mongodb engine; collection name is units_<type>)")
	flags.StringSlice(unitKeyFlag, []string{"name"}, "natural key fields of the unit types")
	flags.Int(skipFlag, 0, "number of units to skip")
	flags.Int(limitFlag, 0, "maximum number of units to return (0 = unbounded)")
	flags.Bool(duplicatesFlag, false, "keep duplicate associations for the same unit")
	flags.Bool(idsOnlyFlag, false, "print distinct unit ids per type instead of merged records")

	if err := cmd.MarkFlagRequired(repoFlag); err != nil {
		panic(err)
	}

	return cmd
}

func runQuery(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	log := logger.MustNewLogger(viper.GetString(logFormatFlag), viper.GetString(logLevelFlag))
	defer func() {
		_ = log.Sync()
	}()

	repoID, err := cmd.Flags().GetString(repoFlag)
	if err != nil {
		return err
	}

	ds, reg, err := buildDatastore(ctx, cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = ds.Close(ctx)
	}()

	engine := repounit.NewAssociationQuery(ds, reg, repounit.WithLogger(log))

	if idsOnly, _ := cmd.Flags().GetBool(idsOnlyFlag); idsOnly {
		typeID, _ := cmd.Flags().GetString(typeFlag)
		byType, err := engine.GetUnitIDs(ctx, repoID, typeID)
		if err != nil {
			return err
		}

		typeIDs := make([]string, 0, len(byType))
		for t := range byType {
			typeIDs = append(typeIDs, t)
		}
		sort.Strings(typeIDs)

		for _, t := range typeIDs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", t, strings.Join(byType[t], ", "))
		}
		return nil
	}

	criteria := repounit.NewCriteria()
	if keep, _ := cmd.Flags().GetBool(duplicatesFlag); keep {
		criteria.RemoveDuplicates = false
	}
	if skip, _ := cmd.Flags().GetInt(skipFlag); skip > 0 {
		criteria = criteria.WithSkip(skip)
	}
	if limit, _ := cmd.Flags().GetInt(limitFlag); limit > 0 {
		criteria = criteria.WithLimit(limit)
	}

	var results repounit.UnitIterator
	if typeID, _ := cmd.Flags().GetString(typeFlag); typeID != "" {
		results, err = engine.GetUnitsByType(ctx, repoID, typeID, criteria)
	} else {
		results, err = engine.GetUnits(ctx, repoID, criteria)
	}
	if err != nil {
		return err
	}
	defer results.Stop()

	count := 0
	for {
		rec, err := results.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				break
			}
			return err
		}

		count++
		fmt.Fprintf(cmd.OutOrStdout(), "%s/%s (created %s): %v\n",
			rec.TypeID, rec.UnitID, rec.Created.Format(time.RFC3339), rec.Metadata.Fields)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d unit(s)\n", count)
	return nil
}

func buildDatastore(ctx context.Context, cmd *cobra.Command) (storage.Datastore, registry.TypeRegistry, error) {
	engine := viper.GetString(datastoreEngineFlag)

	unitKey, err := cmd.Flags().GetStringSlice(unitKeyFlag)
	if err != nil {
		return nil, nil, err
	}

	switch engine {
	case "memory":
		ds := memory.New()
		reg, err := seedDemoData(ctx, ds)
		if err != nil {
			return nil, nil, err
		}
		return ds, reg, nil

	case "mongodb":
		ds, err := mongodb.New(ctx, viper.GetString(datastoreURIFlag), viper.GetString(datastoreNameFlag))
		if err != nil {
			return nil, nil, err
		}

		typeIDs, err := cmd.Flags().GetStringSlice(typesFlag)
		if err != nil {
			return nil, nil, err
		}

		reg := registry.NewStatic()
		for _, typeID := range typeIDs {
			reg.Register(typeID, ds.Collection("units_"+typeID), unitKey...)
		}
		return ds, reg, nil

	default:
		return nil, nil, fmt.Errorf("unknown datastore engine: %s", engine)
	}
}

// seedDemoData fills the memory engine with a small repository so the command
// is usable out of the box.
func seedDemoData(ctx context.Context, ds *memory.Datastore) (registry.TypeRegistry, error) {
	reg := registry.NewStatic()
	now := time.Now().UTC()

	repoID := "demo"
	types := map[string][]storage.Document{
		"rpm": {
			{"name": "bash", "version": "5.2"},
			{"name": "coreutils", "version": "9.4"},
		},
		"erratum": {
			{"name": "RHSA-2024:0001"},
		},
	}

	for typeID, units := range types {
		collection := ds.Collection("units_" + typeID)
		reg.Register(typeID, collection, "name")

		for i, unit := range units {
			unit[storage.FieldID] = uuid.NewString()
			unitID, err := collection.Insert(ctx, unit)
			if err != nil {
				return nil, err
			}

			assoc := &storage.AssociationRecord{
				TypeID:    typeID,
				UnitID:    unitID,
				RepoID:    repoID,
				OwnerType: "importer",
				OwnerID:   "demo-importer",
				Created:   now.Add(time.Duration(i) * time.Second),
				Updated:   now.Add(time.Duration(i) * time.Second),
			}
			if _, err := ds.Associations().Insert(ctx, assoc.AsDocument()); err != nil {
				return nil, err
			}
		}
	}

	return reg, nil
}
