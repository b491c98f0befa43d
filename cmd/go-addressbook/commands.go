package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tartampluch/go-addressbook/internal/cache"
	"github.com/tartampluch/go-addressbook/internal/config"
	"github.com/tartampluch/go-addressbook/internal/engine"
	"github.com/tartampluch/go-addressbook/internal/i18n"
	"github.com/tartampluch/go-addressbook/internal/server"
	"github.com/tartampluch/go-addressbook/internal/ui"
	"golang.org/x/sync/errgroup"
)

// cli holds the state shared by all commands.
type cli struct {
	out io.Writer
	in  io.Reader

	configPath string
	debug      bool
	logCloser  io.Closer
	settings   config.Settings
}

func (c *cli) close() {
	if c.logCloser != nil {
		_ = c.logCloser.Close()
	}
}

// session bundles the collaborators built from the loaded settings.
type session struct {
	store    *cache.Store
	pipeline *engine.Pipeline
	renderer *ui.Renderer
	tr       *i18n.Translator
}

func (c *cli) openSession(ctx context.Context) (*session, error) {
	fetcher, err := engine.NewFetcher(c.settings)
	if err != nil {
		return nil, err
	}

	path := c.settings.CachePath
	if path == "" {
		if path, err = config.DefaultCachePath(); err != nil {
			return nil, err
		}
	}

	store, err := cache.Open(ctx, path)
	if err != nil {
		return nil, err
	}

	clock := engine.RealClock{}
	p := engine.NewPipeline(fetcher, store, clock)
	p.MinDisplay = c.settings.MinDisplay()

	tr := i18n.New(c.settings.Language)
	return &session{
		store:    store,
		pipeline: p,
		renderer: ui.NewRenderer(tr, clock),
		tr:       tr,
	}, nil
}

func (s *session) close() {
	s.pipeline.Close()
	_ = s.store.Close()
}

// cachedSnapshot derives a snapshot from the cache alone, without fetching.
func (s *session) cachedSnapshot(ctx context.Context, mode engine.SortMode) (engine.Snapshot, error) {
	cached, err := s.pipeline.IsCached(ctx)
	if err != nil {
		return engine.Snapshot{}, err
	}
	if !cached {
		return engine.Snapshot{State: engine.Failed[[]engine.Person]{Err: errors.New(config.ErrCacheEmpty)}, Mode: mode}, nil
	}

	people, err := s.store.All(ctx)
	if err != nil {
		return engine.Snapshot{}, err
	}
	sorted, err := engine.SortPeople(people, mode, engine.Today(s.pipeline.Clock))
	if err != nil {
		return engine.Snapshot{State: engine.Failed[[]engine.Person]{Err: err, Stale: people, HasStale: true}, Mode: mode}, nil
	}
	return engine.Snapshot{State: engine.Success[[]engine.Person]{Data: sorted}, Mode: mode}, nil
}

// lookup returns the cached record for id, printing the not-found message when missing.
func (c *cli) lookup(ctx context.Context, s *session, id string) (engine.Person, error) {
	p, found, err := s.store.ByID(ctx, id)
	if err != nil {
		return engine.Person{}, err
	}
	if !found {
		fmt.Fprint(c.out, s.renderer.NotFound(id))
		return engine.Person{}, fmt.Errorf("%s: %s", config.ErrPersonNotFound, id)
	}
	return p, nil
}

func parseCriteria(dept, query string) (engine.Criteria, error) {
	crit := engine.Criteria{Query: query}
	if dept == "" {
		return crit, nil
	}
	d, ok := engine.ParseDepartment(dept)
	if !ok {
		return crit, fmt.Errorf("%s: %q", config.ErrDepartmentLookup, dept)
	}
	crit.Department = d
	return crit, nil
}

// -----------------------------------------------------------------------------
// Command Tree
// -----------------------------------------------------------------------------

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          config.CmdRoot,
		Short:        config.ShortRoot,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.logCloser = setupLogging(c.debug)
			logStartupInfo()

			path := c.configPath
			if path == "" {
				if p, err := config.DefaultSettingsPath(); err == nil {
					path = p
				}
			}
			s, err := config.Load(path)
			if err != nil {
				return err
			}
			s.ResolveToken()
			c.settings = s
			return nil
		},
	}
	root.SetOut(c.out)
	root.PersistentFlags().StringVar(&c.configPath, config.FlagConfig, "", config.FlagDescConfig)
	root.PersistentFlags().BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)

	root.AddCommand(
		c.listCmd(),
		c.showCmd(),
		c.searchCmd(),
		c.editCmd(),
		c.deleteCmd(),
		c.departmentsCmd(),
		c.serveCmd(),
		c.loginCmd(),
		c.versionCmd(),
	)
	return root
}

func (c *cli) listCmd() *cobra.Command {
	var sortFlag, dept, query string
	var offline bool

	cmd := &cobra.Command{
		Use:   config.CmdList,
		Short: config.ShortList,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if sortFlag == "" {
				sortFlag = c.settings.SortMode
			}
			mode, err := engine.ParseSortMode(sortFlag)
			if err != nil {
				return err
			}
			crit, err := parseCriteria(dept, query)
			if err != nil {
				return err
			}

			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			var snap engine.Snapshot
			if offline {
				if snap, err = s.cachedSnapshot(ctx, mode); err != nil {
					return err
				}
			} else {
				if err := s.pipeline.SetSortMode(mode); err != nil {
					return err
				}
				<-s.pipeline.Refresh(ctx)
				if err := ctx.Err(); err != nil {
					return err
				}
				snap = engine.Snapshot{State: s.pipeline.State(), Mode: s.pipeline.SortMode()}
			}

			fmt.Fprint(c.out, s.renderer.Directory(snap, crit))

			if f, ok := snap.State.(engine.Failed[[]engine.Person]); ok && !f.HasStale {
				return fmt.Errorf("%s: %w", config.ErrRefreshFailed, f.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sortFlag, config.FlagSort, "", config.FlagDescSort)
	cmd.Flags().StringVar(&dept, config.FlagDepartment, "", config.FlagDescDepartment)
	cmd.Flags().StringVar(&query, config.FlagQuery, "", config.FlagDescQuery)
	cmd.Flags().BoolVar(&offline, config.FlagOffline, false, config.FlagDescOffline)
	return cmd
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdShow,
		Short: config.ShortShow,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			p, err := c.lookup(ctx, s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(c.out, s.renderer.Person(p))
			return nil
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var dept string

	cmd := &cobra.Command{
		Use:   config.CmdSearch,
		Short: config.ShortSearch,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			crit, err := parseCriteria(dept, args[0])
			if err != nil {
				return err
			}

			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			people, err := s.store.Search(ctx, args[0])
			if err != nil {
				return err
			}
			snap := engine.Snapshot{State: engine.Success[[]engine.Person]{Data: people}, Mode: engine.SortNone}
			fmt.Fprint(c.out, s.renderer.Directory(snap, crit))
			return nil
		},
	}

	cmd.Flags().StringVar(&dept, config.FlagDepartment, "", config.FlagDescDepartment)
	return cmd
}

func (c *cli) editCmd() *cobra.Command {
	var first, last, tag, position, phone, birthday, dept string

	cmd := &cobra.Command{
		Use:   config.CmdEdit,
		Short: config.ShortEdit,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			p, err := c.lookup(ctx, s, args[0])
			if err != nil {
				return err
			}

			changed := cmd.Flags().Changed
			if changed(config.FlagFirstName) {
				p.FirstName = first
			}
			if changed(config.FlagLastName) {
				p.LastName = last
			}
			if changed(config.FlagTag) {
				p.UserTag = tag
			}
			if changed(config.FlagPosition) {
				p.Position = position
			}
			if changed(config.FlagPhone) {
				p.Phone = phone
			}
			if changed(config.FlagBirthday) {
				p.Birthday = birthday
			}
			if changed(config.FlagDepartment) {
				crit, err := parseCriteria(dept, "")
				if err != nil {
					return err
				}
				p.Department = crit.Department
			}

			if err := s.pipeline.Edit(ctx, p); err != nil {
				return err
			}
			fmt.Fprint(c.out, s.renderer.Person(p))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&first, config.FlagFirstName, "", config.FlagDescFirstName)
	f.StringVar(&last, config.FlagLastName, "", config.FlagDescLastName)
	f.StringVar(&tag, config.FlagTag, "", config.FlagDescTag)
	f.StringVar(&position, config.FlagPosition, "", config.FlagDescPosition)
	f.StringVar(&phone, config.FlagPhone, "", config.FlagDescPhone)
	f.StringVar(&birthday, config.FlagBirthday, "", config.FlagDescBirthday)
	f.StringVar(&dept, config.FlagDepartment, "", config.FlagDescDepartment)
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdDelete,
		Short: config.ShortDelete,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if _, err := c.lookup(ctx, s, args[0]); err != nil {
				return err
			}
			return s.pipeline.Delete(ctx, args[0])
		},
	}
}

func (c *cli) departmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdDepartments,
		Short: config.ShortDepartments,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			depts, err := s.store.Departments(ctx)
			if err != nil {
				return err
			}
			labels := make([]engine.Department, 0, len(depts))
			for _, d := range depts {
				labels = append(labels, d.Label)
			}
			fmt.Fprint(c.out, s.renderer.Departments(labels))
			return nil
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdServe,
		Short: config.ShortServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			mode, err := engine.ParseSortMode(c.settings.SortMode)
			if err != nil {
				return err
			}

			s, err := c.openSession(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.pipeline.SetSortMode(mode); err != nil {
				return err
			}

			srv := server.NewFeedServer(c.settings.ServerPort)
			app := ui.NewApp(s.pipeline, srv, s.tr, c.settings)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Start(gctx) })
			g.Go(func() error { return app.Run(gctx) })
			return g.Wait()
		},
	}
}

func (c *cli) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdLogin,
		Short: config.ShortLogin,
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			fmt.Fprint(c.out, config.MsgTokenPrompt)

			line, err := bufio.NewReader(c.in).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			token := strings.TrimSpace(line)
			if token == "" {
				return errors.New(config.ErrTokenEmpty)
			}

			if err := config.StoreToken(args[0], token); err != nil {
				return err
			}
			fmt.Fprintf(c.out, config.MsgTokenSaved, args[0])
			return nil
		},
	}
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdVersion,
		Short: config.ShortVersion,
		Args:  cobra.NoArgs,
		// Skip settings loading: printing the version must work with a broken config.
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(*cobra.Command, []string) {
			printVersion(c.out)
		},
	}
}
