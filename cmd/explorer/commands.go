package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/spektr-org/myriad/api"
	"github.com/spektr-org/myriad/engine"
	"github.com/spektr-org/myriad/helpers"
)

var (
	selectFlags []string
	formatFlag  string
	outFlag     string

	dimensionsCmd = &cobra.Command{
		Use:   "dimensions",
		Short: "List dimensions and their vocabularies",
		RunE:  runDimensions,
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Query the store with dimension selections",
		Example: `  explorer query --select Region=EU --select Channel=web
  explorer query --select Property=acme --format csv --out acme.csv`,
		RunE: runQuery,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the explorer HTTP API",
		RunE:  runServe,
	}
)

func init() {
	queryCmd.Flags().StringArrayVar(&selectFlags, "select", nil, "Dimension=value selection (repeatable)")
	queryCmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, csv, json, text")
	queryCmd.Flags().StringVar(&outFlag, "out", "", "Write output to file instead of stdout")
}

func runDimensions(cmd *cobra.Command, args []string) error {
	session, release, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIMENSION\tVALUES")
	for _, sel := range session.Selections() {
		vocab, err := session.Vocabulary(sel.Dimension.Name)
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%s\t%s\n", sel.Dimension.Name, strings.Join(vocab, ", "))
	}
	return tw.Flush()
}

// parseSelection splits "Dimension=value".
func parseSelection(s string) (string, string, error) {
	dim, value, ok := strings.Cut(s, "=")
	dim = strings.TrimSpace(dim)
	if !ok || dim == "" {
		return "", "", fmt.Errorf("invalid selection %q: want Dimension=value", s)
	}
	return dim, strings.TrimSpace(value), nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	switch formatFlag {
	case "table", "csv", "json", "text":
	default:
		return fmt.Errorf("unknown format %q", formatFlag)
	}

	session, release, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer release()

	for _, s := range selectFlags {
		dim, value, err := parseSelection(s)
		if err != nil {
			return err
		}
		changed, err := session.Select(dim, value)
		if err != nil {
			return err
		}
		if !changed {
			logger.Warn("selection ignored", "dimension", dim, "value", value, "reason", "not in vocabulary")
		}
	}

	res, err := session.Query(cmd.Context())
	if err != nil {
		return err
	}
	for _, d := range res.Dropped {
		logger.Warn("selection dropped", "error", d)
	}

	w := cmd.OutOrStdout()
	if outFlag != "" {
		f, err := os.Create(outFlag)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	td := session.TableData("Results")
	switch formatFlag {
	case "csv":
		err = helpers.WriteTableCSV(w, td)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(td)
	case "text":
		text := session.TextData()
		_, err = fmt.Fprintf(w, "%s (%s)\n", text.Value, text.Period)
	default:
		err = writeTable(w, td)
	}
	if err != nil {
		return err
	}
	if outFlag != "" {
		logger.Info("results written", "path", outFlag, "format", formatFlag, "rows", td.Summary.Rows)
	}
	return nil
}

// writeTable renders td as aligned text followed by its summary line.
func writeTable(w io.Writer, td *engine.TableData) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	header := make([]string, len(td.Columns))
	for i, c := range td.Columns {
		header[i] = c.Label
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range td.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if td.Summary != nil {
		line := td.Summary.Label
		if td.Summary.Rejected > 0 {
			line += fmt.Sprintf(" (%d rejected)", td.Summary.Rejected)
		}
		_, err := fmt.Fprintln(w, line)
		return err
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, release, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer release()

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(session),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting explorer API server", "addr", cfg.Server.Addr, "backend", cfg.Store.Backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
