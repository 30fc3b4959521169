package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperjump/bunkatsu/internal/cli"
	"github.com/hyperjump/bunkatsu/internal/keyword"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refindex"
)

var serverURL string

var (
	expandNeighbors  bool
	expandReferences bool
	expandBacklinks  bool
	expandChunks     bool
	lookupLimit      int
	lookupFuzzy      bool
	lookupSource     string
	lookupSection    string
)

var expandCmd = &cobra.Command{
	Use:   "expand <chunk-id>...",
	Short: "Expand chunk ids with neighbors, referenced and referencing chunks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runExpand,
}

var showCmd = &cobra.Command{
	Use:   "show <chunk-id>",
	Short: "Show one chunk with its annotations",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var refsCmd = &cobra.Command{
	Use:   "refs <code>",
	Short: "Show the chunks of a section and the chunks referencing it",
	Long:  `Shows the reference index entry of a code such as "CS 25.571" or "cs-25.571".`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRefs,
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <query>",
	Short: "Look up chunks in the keyword catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLookup,
}

func init() {
	for _, c := range []*cobra.Command{expandCmd, showCmd, refsCmd, lookupCmd, statusCmd} {
		c.Flags().StringVar(&serverURL, "server", defaultServerURL, `server URL (empty = read storage directly; the server must not be running)`)
	}
	expandCmd.Flags().BoolVar(&expandNeighbors, "neighbors", true, "add the previous and next chunk of the same source")
	expandCmd.Flags().BoolVar(&expandReferences, "references", true, "add the chunks of referenced sections")
	expandCmd.Flags().BoolVar(&expandBacklinks, "backlinks", false, "add the chunks referencing the sections of the input")
	expandCmd.Flags().BoolVar(&expandChunks, "chunks", false, "include chunk content")
	lookupCmd.Flags().IntVarP(&lookupLimit, "limit", "n", 10, "number of results")
	lookupCmd.Flags().BoolVar(&lookupFuzzy, "fuzzy", false, "enable fuzzy matching for typo tolerance")
	lookupCmd.Flags().StringVar(&lookupSource, "source", "", "restrict to one source locator")
	lookupCmd.Flags().StringVar(&lookupSection, "section", "", "restrict to one section code")
	rootCmd.AddCommand(expandCmd, showCmd, refsCmd, lookupCmd)
}

// withDirect runs fn against locally opened components.
func withDirect(fn func(ctx context.Context, c *Components, format cli.OutputFormat) error) error {
	cfg, _, logger, format, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	ctx := context.Background()
	c, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(ctx, c, format)
}

func apiURL(path string) string {
	return strings.TrimRight(serverURL, "/") + "/api/v1" + path
}

func runExpand(cmd *cobra.Command, args []string) error {
	query := models.ExpandQuery{
		ChunkIDs:      args,
		Neighbors:     &expandNeighbors,
		References:    &expandReferences,
		Backlinks:     &expandBacklinks,
		IncludeChunks: expandChunks,
	}
	if err := query.Validate(); err != nil {
		return err
	}
	if serverURL != "" {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		var resp models.ExpandResponse
		if err := callJSON(http.MethodPost, apiURL("/expand"), query, &resp); err != nil {
			return fmt.Errorf("expand failed: %w", err)
		}
		return cli.WriteExpansion(cmd.OutOrStdout(), &resp, format)
	}
	return withDirect(func(ctx context.Context, c *Components, format cli.OutputFormat) error {
		opts := refindex.ExpandOptions{Neighbors: expandNeighbors, References: expandReferences, Backlinks: expandBacklinks}
		expansions := c.Expander.ExpandWith(query.ChunkIDs, opts)
		resp := models.ExpandResponse{ChunkIDs: refindex.IDs(expansions), Expansions: expansions}
		if query.IncludeChunks && len(resp.ChunkIDs) > 0 {
			chunks, err := c.Storage.GetChunks(ctx, resp.ChunkIDs)
			if err != nil {
				return err
			}
			resp.Chunks = chunks
		}
		return cli.WriteExpansion(cmd.OutOrStdout(), &resp, format)
	})
}

func runShow(cmd *cobra.Command, args []string) error {
	if serverURL != "" {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		var chunk models.Chunk
		if err := callJSON(http.MethodGet, apiURL("/chunks/"+url.PathEscape(args[0])), nil, &chunk); err != nil {
			return fmt.Errorf("show failed: %w", err)
		}
		return cli.WriteChunk(cmd.OutOrStdout(), &chunk, format)
	}
	return withDirect(func(ctx context.Context, c *Components, format cli.OutputFormat) error {
		chunk, err := c.Storage.GetChunk(ctx, args[0])
		if err != nil {
			return err
		}
		return cli.WriteChunk(cmd.OutOrStdout(), chunk, format)
	})
}

func runRefs(cmd *cobra.Command, args []string) error {
	raw := strings.Join(args, " ")
	if serverURL != "" {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		var entry models.ReferenceIndexEntry
		if err := callJSON(http.MethodGet, apiURL("/references/"+url.PathEscape(raw)), nil, &entry); err != nil {
			return fmt.Errorf("refs failed: %w", err)
		}
		return cli.WriteEntry(cmd.OutOrStdout(), &entry, format)
	}
	return withDirect(func(_ context.Context, c *Components, format cli.OutputFormat) error {
		code, ok := c.Families.Normalize(raw)
		if !ok {
			return fmt.Errorf("not a reference code: %s", raw)
		}
		entry := c.Refs.Entry(code)
		return cli.WriteEntry(cmd.OutOrStdout(), &entry, format)
	})
}

func runLookup(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if serverURL != "" {
		format, err := cli.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		params := url.Values{"q": {query}, "limit": {strconv.Itoa(lookupLimit)}}
		if lookupFuzzy {
			params.Set("fuzzy", "true")
		}
		if lookupSource != "" {
			params.Set("source", lookupSource)
		}
		if lookupSection != "" {
			params.Set("section", lookupSection)
		}
		var out struct {
			Results []*keyword.Result `json:"results"`
		}
		if err := callJSON(http.MethodGet, apiURL("/lookup?"+params.Encode()), nil, &out); err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}
		return cli.WriteLookup(cmd.OutOrStdout(), query, out.Results, format)
	}
	return withDirect(func(ctx context.Context, c *Components, format cli.OutputFormat) error {
		results, err := c.Catalog.Search(ctx, query, lookupLimit, &keyword.SearchOptions{
			FuzzyEnabled: lookupFuzzy,
			Source:       lookupSource,
			Section:      lookupSection,
		})
		if err != nil {
			return err
		}
		return cli.WriteLookup(cmd.OutOrStdout(), query, results, format)
	})
}
