// newsdesk aggregates headlines from several news providers into one
// deduplicated, categorized feed.
//
// Usage:
//
//	newsdesk serve                  # run the HTTP API
//	newsdesk headlines -c science   # print a page of headlines
//	newsdesk search "climate"       # search providers
//	newsdesk refresh --force        # purge aged rows and refetch
//	newsdesk enrich <url>           # extract an article's full text
//	newsdesk ask "what happened?"   # ask the assistant
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/newsdesk/internal/api"
	"github.com/RobinCoderZhao/newsdesk/internal/newsdesk/news"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "newsdesk",
		Short:        "Multi-source news ingestion and dedup pipeline",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default newsdesk.yaml)")

	rootCmd.AddCommand(
		serveCmd(&configPath),
		headlinesCmd(&configPath),
		searchCmd(&configPath),
		refreshCmd(&configPath),
		enrichCmd(&configPath),
		purgeCmd(&configPath),
		pinCmd(&configPath),
		askCmd(&configPath),
		tokenCmd(&configPath),
		versionCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// withApp wires the pipeline for the duration of fn.
func withApp(cmd *cobra.Command, configPath string, fn func(*app) error) error {
	a, err := newApp(cmd.Context(), configPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Error("shutdown", "error", err)
		}
	}()
	return fn(a)
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(a *app) error {
				opts := api.Options{
					AdminSecret: a.cfg.Server.AdminSecret,
					CORSOrigins: a.cfg.Server.CORSOrigins,
					Logger:      a.log,
				}
				var asst api.Assistant
				if a.assistant != nil {
					asst = a.assistant
				}
				server := api.NewServer(a.aggregator, a.enricher, asst, opts)

				srv := &http.Server{
					Addr:         a.cfg.Server.Addr,
					Handler:      server.Routes(),
					ReadTimeout:  a.cfg.Server.ReadTimeout,
					WriteTimeout: a.cfg.Server.WriteTimeout,
				}

				errCh := make(chan error, 1)
				go func() {
					a.log.Info("starting HTTP server", "addr", srv.Addr)
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err := <-errCh:
					return fmt.Errorf("serve: %w", err)
				case <-cmd.Context().Done():
				}

				a.log.Info("shutting down server")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			})
		},
	}
}

type pageFlags struct {
	category string
	page     int
	size     int
	json     bool
}

func (f *pageFlags) register(cmd *cobra.Command, withCategory bool) {
	if withCategory {
		cmd.Flags().StringVarP(&f.category, "category", "c", "", "category filter (empty for all)")
	}
	cmd.Flags().IntVarP(&f.page, "page", "p", 1, "page number")
	cmd.Flags().IntVarP(&f.size, "size", "n", 20, "page size")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
}

func headlinesCmd(configPath *string) *cobra.Command {
	var f pageFlags
	cmd := &cobra.Command{
		Use:   "headlines",
		Short: "Print a page of headlines",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := news.ParseCategory(f.category)
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(a *app) error {
				page, err := a.aggregator.GetHeadlines(cmd.Context(), category, f.page, f.size)
				if err != nil {
					return err
				}
				return printPage(cmd, page, f.json)
			})
		},
	}
	f.register(cmd, true)
	return cmd
}

func searchCmd(configPath *string) *cobra.Command {
	var f pageFlags
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the providers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(a *app) error {
				page, err := a.aggregator.Search(cmd.Context(), strings.Join(args, " "), f.page, f.size)
				if err != nil {
					return err
				}
				return printPage(cmd, page, f.json)
			})
		},
	}
	f.register(cmd, false)
	return cmd
}

func refreshCmd(configPath *string) *cobra.Command {
	var (
		f     pageFlags
		force bool
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Refetch a listing, optionally purging aged rows first",
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := news.ParseCategory(f.category)
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(a *app) error {
				page, err := a.aggregator.Refresh(cmd.Context(), category, f.page, f.size, force)
				if err != nil {
					return err
				}
				return printPage(cmd, page, f.json)
			})
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&force, "force", false, "purge aged rows and ignore the cache")
	return cmd
}

func enrichCmd(configPath *string) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "enrich <url>",
		Short: "Extract the full text of an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(a *app) error {
				res, err := a.enricher.Enrich(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				if res.Author != "" {
					fmt.Fprintf(out, "Author:    %s\n", res.Author)
				}
				if res.PublishedAt != nil {
					fmt.Fprintf(out, "Published: %s\n", res.PublishedAt.Format(time.RFC3339))
				}
				if res.ImageURL != "" {
					fmt.Fprintf(out, "Image:     %s\n", res.ImageURL)
				}
				fmt.Fprintf(out, "\n%s\n", res.Content)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func purgeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete aged, unpinned articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(a *app) error {
				n, err := a.aggregator.Purge(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d articles\n", n)
				return nil
			})
		},
	}
}

func pinCmd(configPath *string) *cobra.Command {
	var unpin bool
	cmd := &cobra.Command{
		Use:   "pin <url>",
		Short: "Keep a stored article through purges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, *configPath, func(a *app) error {
				if err := a.store.SetPinned(cmd.Context(), args[0], !unpin); err != nil {
					return err
				}
				state := "pinned"
				if unpin {
					state = "unpinned"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", state, args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&unpin, "unpin", false, "remove the pin instead")
	return cmd
}

func askCmd(configPath *string) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the assistant about recent articles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := news.ParseCategory(category)
			if err != nil {
				return err
			}
			return withApp(cmd, *configPath, func(a *app) error {
				if a.assistant == nil {
					return fmt.Errorf("assistant is not configured: set llm.provider and llm.api_key")
				}
				ans, err := a.assistant.Ask(cmd.Context(), strings.Join(args, " "), cat)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ans.Reply)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "restrict context to a category")
	return cmd
}

func tokenCmd(configPath *string) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token for forced refreshes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			token, err := api.IssueToken(cfg.Server.AdminSecret, api.RoleAdmin, ttl)
			if err != nil {
				return fmt.Errorf("issue token (is server.admin_secret set?): %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "newsdesk %s\n", version)
		},
	}
}
