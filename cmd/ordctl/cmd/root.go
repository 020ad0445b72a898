// Package cmd implements ordctl, the maintenance CLI that inspects and
// repairs rank drift directly in a local database file.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/israelwong/zen-sub001/db/pkg/sqlitelocal"
	"github.com/israelwong/zen-sub001/pkg/config"
	"github.com/israelwong/zen-sub001/pkg/idwrap"
	"github.com/israelwong/zen-sub001/pkg/model/morder"
	"github.com/israelwong/zen-sub001/pkg/service/sorder"
)

type rootOptions struct {
	configPath string
	dbPath     string
	dbName     string
	studio     string
	parent     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "ordctl",
		Short:         "Inspect and repair the ordering of studio lists",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", os.Getenv("ZEN_CONFIG"), "config file")
	flags.StringVar(&opts.dbPath, "db-path", "", "database directory (overrides config)")
	flags.StringVar(&opts.dbName, "db-name", "", "database name without extension (overrides config)")
	flags.StringVar(&opts.studio, "studio", "", "studio id")
	flags.StringVar(&opts.parent, "parent", "", "parent id for nested collections")

	root.AddCommand(newNormalizeCmd(opts), newMoveCmd(opts), newListCmd(opts), newCheckCmd(opts), newVersionCmd())
	return root
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// openService loads config, opens the database and returns a service bound to
// it. The returned func releases the database.
func (o *rootOptions) openService(ctx context.Context) (*sorder.Service, func(), error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("load .env: %w", err)
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.dbPath != "" {
		cfg.DB.Path = o.dbPath
	}
	if o.dbName != "" {
		cfg.DB.Name = o.dbName
	}

	db, closeDB, err := sqlitelocal.NewSQLiteLocal(ctx, sqlitelocal.Options{
		Name:        cfg.DB.Name,
		Dir:         cfg.DB.Path,
		BusyTimeout: cfg.DB.BusyTimeout,
	})
	if err != nil {
		return nil, nil, err
	}
	svc := sorder.New(db,
		sorder.WithLogger(cfg.NewLogger()),
		sorder.WithConflictRetries(cfg.Order.ConflictRetries),
	)
	return svc, closeDB, nil
}

func (o *rootOptions) studioID() (idwrap.IDWrap, error) {
	if o.studio == "" {
		return idwrap.IDWrap{}, errors.New("--studio is required")
	}
	return idwrap.NewText(o.studio)
}

func (o *rootOptions) scopeFromArgs(collection string) (morder.Scope, error) {
	c, err := morder.ParseCollection(collection)
	if err != nil {
		return morder.Scope{}, err
	}
	studio, err := o.studioID()
	if err != nil {
		return morder.Scope{}, err
	}
	scope := morder.Scope{Collection: c, StudioID: studio}
	if o.parent != "" {
		parent, err := idwrap.NewText(o.parent)
		if err != nil {
			return morder.Scope{}, fmt.Errorf("--parent: %w", err)
		}
		scope.ParentID = &parent
	}
	return scope, scope.Validate()
}
