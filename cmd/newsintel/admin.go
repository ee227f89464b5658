package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jthornhill/newsintel/internal/catalog"
)

// Catalog and round administration. Every catalog mutation invalidates
// the shared pattern cache so a reindex in the same invocation sees the
// new names.

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Manage the entity catalog",
}

var entitiesType string

var entitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var typeFilter *string
		if entitiesType != "" {
			typeFilter = &entitiesType
		}

		entities, err := db.GetEntities(cfg.Domain, typeFilter)
		if err != nil {
			return err
		}

		if len(entities) == 0 {
			fmt.Println("No entities registered. Add one with: newsintel entities add")
			return nil
		}

		for _, e := range entities {
			fmt.Printf("  [%d] %-8s %s\n", e.ID, e.EntityType, e.CanonicalName)
		}
		return nil
	},
}

var entitiesAddCmd = &cobra.Command{
	Use:   "add [type] [name]",
	Short: "Register an entity (type: player or team)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		entityType, name := args[0], args[1]
		if entityType != "player" && entityType != "team" {
			return fmt.Errorf("unknown entity type %q (want player or team)", entityType)
		}

		id, err := db.CreateEntity(cfg.Domain, entityType, name, nil, nil)
		if err != nil {
			return err
		}
		if id == 0 {
			fmt.Printf("Entity already exists: %s\n", name)
			return nil
		}
		sharedCache().Invalidate()
		fmt.Printf("Added %s [%d]: %s\n", entityType, id, name)
		return nil
	},
}

var aliasConfidence float64

var entitiesAliasCmd = &cobra.Command{
	Use:   "alias [entity-id] [alias]",
	Short: "Add an alias to an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid entity ID: %s", args[0])
		}

		entity, err := db.GetEntityByID(id)
		if err != nil {
			return err
		}
		if entity == nil {
			return fmt.Errorf("entity %d not found", id)
		}

		if err := db.AddAlias(id, args[1], "manual", aliasConfidence); err != nil {
			return err
		}
		sharedCache().Invalidate()
		fmt.Printf("Added alias %q -> %s\n", args[1], entity.CanonicalName)
		return nil
	},
}

var entitiesResolveCmd = &cobra.Command{
	Use:   "resolve [name]",
	Short: "Resolve a free-text name against the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		resolver := catalog.NewResolver(db)
		entity, err := resolver.Resolve(args[0], cfg.Domain, entitiesType)
		if err != nil {
			return err
		}
		if entity == nil {
			fmt.Printf("No confident match for %q\n", args[0])
			return nil
		}
		fmt.Printf("Resolved %q -> [%d] %s (%s)\n", args[0], entity.ID, entity.CanonicalName, entity.EntityType)
		return nil
	},
}

func init() {
	entitiesListCmd.Flags().StringVar(&entitiesType, "type", "", "Filter by entity type")
	entitiesResolveCmd.Flags().StringVar(&entitiesType, "type", "", "Restrict to entity type")
	entitiesAliasCmd.Flags().Float64Var(&aliasConfidence, "confidence", 1.0, "Alias confidence (0-1)")

	entitiesCmd.AddCommand(entitiesListCmd)
	entitiesCmd.AddCommand(entitiesAddCmd)
	entitiesCmd.AddCommand(entitiesAliasCmd)
	entitiesCmd.AddCommand(entitiesResolveCmd)
}

// --- rounds ---

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Manage competition rounds",
}

var roundsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered rounds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rounds, err := db.GetRounds()
		if err != nil {
			return err
		}
		if len(rounds) == 0 {
			fmt.Println("No rounds registered. Add one with: newsintel rounds add")
			return nil
		}

		current, err := db.GetCurrentRound()
		if err != nil {
			return err
		}

		for _, r := range rounds {
			marker := " "
			if current != nil && current.ID == r.ID {
				marker = "*"
			}
			fmt.Printf("  %s Round %2d: %s to %s\n", marker, r.Number, r.StartDate, r.EndDate)
		}
		return nil
	},
}

var roundsAddCmd = &cobra.Command{
	Use:   "add [number] [start-date] [end-date]",
	Short: "Register a round (dates YYYY-MM-DD)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid round number: %s", args[0])
		}

		id, err := db.InsertRound(number, args[1], args[2])
		if err != nil {
			return err
		}
		if id == 0 {
			fmt.Printf("Round %d already registered\n", number)
			return nil
		}
		fmt.Printf("Added round %d: %s to %s\n", number, args[1], args[2])
		return nil
	},
}

func init() {
	roundsCmd.AddCommand(roundsListCmd)
	roundsCmd.AddCommand(roundsAddCmd)
}
