package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pactline/internal/app"
	"pactline/internal/config"
	"pactline/internal/db"
	"pactline/internal/domain"
	"pactline/internal/engine"
	"pactline/internal/repo"
	"pactline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "pl",
	Short: "Pactline CLI",
	Long: `Pactline shepherds data contracts from request to publication.
A session walks seven stages (request -> discovery -> specification -> review
-> approval -> active, with rejected as the exit) and each gate demands real
evidence: a discovery comment before specification, a schema before review, a
review comment before approval. The contract itself is an ODCS v3.1.0
document built up as the session advances, exportable as YAML at any point.
Reference datasets (codelists like country codes) live alongside sessions so
contracts can point at governed lookup data.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("PACTLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(datasetCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default pactline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(name)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "pactline", "workspace name")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				counts, err := e.Repo.CountSessionsByStage(ctx)
				if err != nil {
					return err
				}
				datasets, err := e.ListDatasets(ctx, repo.DatasetFilters{})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{
						"workspace":     e.Config.Workspace.Name,
						"stage_counts":  counts,
						"dataset_count": len(datasets),
					})
				}
				fmt.Printf("Workspace: %s\n", e.Config.Workspace.Name)
				fmt.Println("Sessions:")
				for stage, c := range counts {
					fmt.Printf("  %s: %d\n", stage, c)
				}
				fmt.Printf("Reference datasets: %d\n", len(datasets))
				return nil
			})
		},
	}
	return cmd
}

func sessionCmd() *cobra.Command {
	session := &cobra.Command{
		Use:   "session",
		Short: "Manage contract sessions",
		Long:  "Sessions track one contract through request, discovery, specification, review, approval, and active. Advance one stage at a time; each gate checks that the stage actually produced something.",
	}
	session.AddCommand(sessionCreateCmd())
	session.AddCommand(sessionListCmd())
	session.AddCommand(sessionShowCmd())
	session.AddCommand(sessionAdvanceCmd())
	session.AddCommand(sessionDeleteCmd())
	session.AddCommand(sessionCommentCmd())
	session.AddCommand(sessionCommentsCmd())
	session.AddCommand(sessionYAMLCmd())
	return session
}

func sessionCreateCmd() *cobra.Command {
	var opts engine.SessionCreateOptions
	var fields []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a contract session",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			opts.DesiredFields = fields
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSession(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "contract title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&opts.BusinessContext, "business-context", "", "business context")
	cmd.Flags().StringVar(&opts.TargetUseCase, "use-case", "", "target use case")
	cmd.Flags().StringVar(&opts.Urgency, "urgency", "", "low, medium, high, or critical")
	cmd.Flags().StringVar(&opts.RequesterName, "requester", "", "requester name")
	cmd.Flags().StringVar(&opts.RequesterEmail, "requester-email", "", "requester email")
	cmd.Flags().StringVar(&opts.Domain, "domain", "", "data domain")
	cmd.Flags().StringVar(&opts.DataProduct, "data-product", "", "data product")
	cmd.Flags().StringSliceVar(&fields, "field", nil, "desired field (repeatable)")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("requester")
	return cmd
}

func sessionListCmd() *cobra.Command {
	var stage string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListSessions(ctx, repo.SessionFilters{Stage: stage, Limit: limit})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Stage", "Requester", "Objects", "Comments", "Updated"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Title, s.CurrentStage, s.Requester, s.NumObjects, s.NumComments, s.UpdatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage filter")
	cmd.Flags().IntVar(&limit, "limit", 50, "max sessions")
	return cmd
}

func sessionShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.GetSession(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	return cmd
}

func sessionAdvanceCmd() *cobra.Command {
	var target, actorName, actorEmail, reason string
	cmd := &cobra.Command{
		Use:   "advance <session-id>",
		Short: "Advance a session to the next stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.StageAdvanceOptions{
					SessionID:   args[0],
					TargetStage: target,
					ActorName:   actorName,
					ActorEmail:  actorEmail,
					ActorID:     viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("reason") {
					opts.Reason = reason
				}
				s, err := e.AdvanceStage(ctx, opts)
				if err != nil {
					return err
				}
				fmt.Printf("Session %s is now in %s\n", s.ID, s.CurrentStage)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&target, "to", "", "target stage")
	cmd.Flags().StringVar(&actorName, "as", "", "actor name recorded on the transition")
	cmd.Flags().StringVar(&actorEmail, "email", "", "actor email")
	cmd.Flags().StringVar(&reason, "reason", "", "transition reason (required for rejected)")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func sessionDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteSession(ctx, args[0], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func sessionCommentCmd() *cobra.Command {
	var author, email, content, parent string
	cmd := &cobra.Command{
		Use:   "comment <session-id>",
		Short: "Post a comment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AddComment(ctx, engine.CommentOptions{
					SessionID:   args[0],
					AuthorName:  author,
					AuthorEmail: email,
					Content:     content,
					ParentID:    parent,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&author, "author", "", "author name")
	cmd.Flags().StringVar(&email, "email", "", "author email")
	cmd.Flags().StringVar(&content, "message", "", "comment text")
	cmd.Flags().StringVar(&parent, "reply-to", "", "parent comment id")
	_ = cmd.MarkFlagRequired("author")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func sessionCommentsCmd() *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "comments <session-id>",
		Short: "List comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListComments(ctx, args[0], stage)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Stage", "Author", "Content", "At"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Stage, c.Author.Name, c.Content, c.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "stage filter")
	return cmd
}

func sessionYAMLCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "yaml <session-id>",
		Short: "Render the contract as ODCS YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				fname, text, err := e.ContractYAML(ctx, args[0])
				if err != nil {
					return err
				}
				if out != "" {
					target := out
					if info, statErr := os.Stat(out); statErr == nil && info.IsDir() {
						target = out + string(os.PathSeparator) + fname
					}
					if err := os.WriteFile(target, []byte(text), 0o644); err != nil {
						return err
					}
					fmt.Printf("Wrote %s\n", target)
					return nil
				}
				fmt.Print(text)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file or directory instead of stdout")
	return cmd
}

func datasetCmd() *cobra.Command {
	ds := &cobra.Command{
		Use:   "dataset",
		Short: "Manage reference datasets",
		Long:  "Reference datasets are governed codelists (country codes, currencies) with typed columns and versioned rows. Delete is soft: datasets deprecate rather than disappear.",
	}
	ds.AddCommand(datasetCreateCmd())
	ds.AddCommand(datasetListCmd())
	ds.AddCommand(datasetShowCmd())
	ds.AddCommand(datasetPublishCmd())
	ds.AddCommand(datasetDeleteCmd())
	ds.AddCommand(datasetRowCmd())
	ds.AddCommand(datasetImportCmd())
	return ds
}

func parseColumnSpec(spec string) (domain.DatasetColumn, error) {
	parts := strings.Split(spec, ":")
	if parts[0] == "" {
		return domain.DatasetColumn{}, fmt.Errorf("invalid column spec %q", spec)
	}
	col := domain.DatasetColumn{Name: parts[0], ColumnType: "string"}
	if len(parts) > 1 && parts[1] != "" {
		col.ColumnType = parts[1]
	}
	for _, flag := range parts[2:] {
		switch flag {
		case "pk":
			col.IsPrimaryKey = true
		case "nullable":
			col.IsNullable = true
		default:
			return domain.DatasetColumn{}, fmt.Errorf("unknown column flag %q in %q", flag, spec)
		}
	}
	return col, nil
}

func datasetCreateCmd() *cobra.Command {
	var name, displayName, description, dsDomain string
	var columnSpecs, owners, tags []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a reference dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			cols := make([]domain.DatasetColumn, 0, len(columnSpecs))
			for _, spec := range columnSpecs {
				col, err := parseColumnSpec(spec)
				if err != nil {
					return err
				}
				cols = append(cols, col)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ds, err := e.CreateDataset(ctx, engine.DatasetCreateOptions{
					Name:        name,
					DisplayName: displayName,
					Description: description,
					Domain:      dsDomain,
					Columns:     cols,
					Owners:      owners,
					Tags:        tags,
					ActorID:     viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(ds)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "snake_case dataset name")
	cmd.Flags().StringVar(&displayName, "display-name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&dsDomain, "domain", "", "data domain")
	cmd.Flags().StringSliceVar(&columnSpecs, "column", nil, "column as name:type[:pk][:nullable] (repeatable)")
	cmd.Flags().StringSliceVar(&owners, "owner", nil, "owner (repeatable)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func datasetListCmd() *cobra.Command {
	var dsDomain, status string
	var grouped bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List reference datasets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if grouped {
					groups, err := e.DatasetGroups(ctx)
					if err != nil {
						return err
					}
					return printJSONOrTable(groups)
				}
				items, err := e.ListDatasets(ctx, repo.DatasetFilters{Domain: dsDomain, Status: status})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Domain", "Status", "Version", "Columns"})
				for _, ds := range items {
					tw.AppendRow(table.Row{ds.ID, ds.Name, ds.Domain, ds.Status, ds.Version, len(ds.Columns)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dsDomain, "domain", "", "domain filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().BoolVar(&grouped, "by-domain", false, "group by domain")
	return cmd
}

func datasetShowCmd() *cobra.Command {
	var includeDeprecated bool
	cmd := &cobra.Command{
		Use:   "show <dataset-id>",
		Short: "Show a dataset with its rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ds, err := e.GetDataset(ctx, args[0])
				if err != nil {
					return err
				}
				rows, err := e.ListRows(ctx, args[0], includeDeprecated)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"dataset": ds, "rows": rows})
				}
				fmt.Printf("%s (%s) %s v%s\n", ds.Name, ds.Status, ds.Domain, ds.Version)
				if ds.Description != "" {
					fmt.Println(ds.Description)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				header := table.Row{"row"}
				for _, col := range ds.Columns {
					header = append(header, col.Name)
				}
				tw.AppendHeader(header)
				for _, row := range rows {
					out := table.Row{row.ID}
					for _, col := range ds.Columns {
						out = append(out, row.Values[col.Name])
					}
					tw.AppendRow(out)
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&includeDeprecated, "include-deprecated", true, "include deprecated rows")
	return cmd
}

func datasetPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish <dataset-id>",
		Short: "Mark a dataset active",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ds, err := e.PublishDataset(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				fmt.Printf("Dataset %s is now %s\n", ds.Name, ds.Status)
				return nil
			})
		},
	}
	return cmd
}

func datasetDeleteCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "delete <dataset-id>",
		Short: "Deprecate a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actorID := viper.GetString("actor-id")
				if purge {
					return e.PurgeDataset(ctx, args[0], actorID)
				}
				_, err := e.DeprecateDataset(ctx, args[0], actorID)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&purge, "purge", false, "remove the dataset and its rows permanently")
	return cmd
}

func datasetRowCmd() *cobra.Command {
	row := &cobra.Command{Use: "row", Short: "Manage dataset rows"}
	row.AddCommand(datasetRowAddCmd())
	row.AddCommand(datasetRowUpdateCmd())
	row.AddCommand(datasetRowDeleteCmd())
	return row
}

func parseRowValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q, expected column=value", pair)
		}
		values[key] = value
	}
	return values, nil
}

func datasetRowAddCmd() *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "add <dataset-id>",
		Short: "Add a row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseRowValues(pairs)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				row, err := e.AddRow(ctx, args[0], viper.GetString("actor-id"), values)
				if err != nil {
					return err
				}
				return printJSONOrTable(row)
			})
		},
	}
	cmd.Flags().StringSliceVar(&pairs, "set", nil, "column=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func datasetRowUpdateCmd() *cobra.Command {
	var pairs []string
	cmd := &cobra.Command{
		Use:   "update <dataset-id> <row-id>",
		Short: "Update a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseRowValues(pairs)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				row, err := e.UpdateRow(ctx, args[0], args[1], viper.GetString("actor-id"), values)
				if err != nil {
					return err
				}
				return printJSONOrTable(row)
			})
		},
	}
	cmd.Flags().StringSliceVar(&pairs, "set", nil, "column=value (repeatable)")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

func datasetRowDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <dataset-id> <row-id>",
		Short: "Delete a row",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteRow(ctx, args[0], args[1], viper.GetString("actor-id"))
			})
		},
	}
	return cmd
}

func datasetImportCmd() *cobra.Command {
	var filePath string
	var replaceAll bool
	cmd := &cobra.Command{
		Use:   "import <dataset-id>",
		Short: "Bulk import rows from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(filePath)
			if err != nil {
				return err
			}
			var rows []map[string]string
			if err := json.Unmarshal(data, &rows); err != nil {
				return fmt.Errorf("parse %s: %w", filePath, err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := e.ImportRows(ctx, args[0], viper.GetString("actor-id"), rows, replaceAll)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d rows\n", res.Imported)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&filePath, "file", "", "JSON array of row objects")
	cmd.Flags().BoolVar(&replaceAll, "replace-all", false, "wipe existing rows first")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Inspect the event log"}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var n int
	var sessionID, evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.Repo.LatestEventsFrom(ctx, n, 0, sessionID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "TS", "Type", "Session", "Entity", "Actor"})
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.SessionID, evt.EntityKind + "/" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&sessionID, "session", "", "session filter")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func apikeyCmd() *cobra.Command {
	keys := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	keys.AddCommand(apikeyCreateCmd())
	keys.AddCommand(apikeyListCmd())
	keys.AddCommand(apikeyDeleteCmd())
	return keys
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			if actorID == "" {
				actorID = viper.GetString("actor-id")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				key, secret, err := e.CreateAPIKey(ctx, actorID, name)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"id": key.ID, "actor_id": key.ActorID, "name": key.Name, "key": secret})
				}
				fmt.Printf("Created key %s for %s\n", key.ID, key.ActorID)
				fmt.Printf("Secret (shown once): %s\n", secret)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor the key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Repo.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Actor", "Name", "Created"})
				for _, k := range items {
					tw.AppendRow(table.Row{k.ID, k.ActorID, k.Name, k.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor filter")
	return cmd
}

func apikeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	return cmd
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the workspace with demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := app.Seed(ctx, e); err != nil {
					return err
				}
				fmt.Println("Seeded demo sessions and reference datasets")
				return nil
			})
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer env.Close()
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("PACTLINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("PACTLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: env.Engine, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(env.Engine)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Pactline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	env, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env.Engine)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
