package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/quill-lang/quill/internal/config"
	"github.com/quill-lang/quill/internal/dispatch"
	"github.com/quill-lang/quill/internal/interp"
	"github.com/quill-lang/quill/internal/stdlib"
	"github.com/quill-lang/quill/pkg/quill"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Boot a Quill script and serve its app object over HTTP",
	Long: `Boot a Quill script, find its registered 'app' object, and serve
every request through the request dispatcher (spec.md §4.9) over real
HTTP, translating http.Request/ResponseWriter to the dispatcher's
Request/Response records.

Examples:
  quill serve app.ql
  quill serve --addr :9090 --config quill.yaml app.ql`,
	Args: cobra.MaximumNArgs(1),
	RunE: serveApp,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&evalExpr, "eval", "e", "", "boot inline code instead of reading from file")
	serveCmd.Flags().StringVar(&listenAddr, "addr", ":8080", "address to listen on")
}

func serveApp(cmd *cobra.Command, args []string) error {
	input, _, err := readSource(args)
	if err != nil {
		return err
	}

	opts, err := loadOptions()
	if err != nil {
		return err
	}
	addr := listenAddr
	if configPath != "" && !cmd.Flags().Changed("addr") {
		if f, ferr := config.Load(configPath); ferr == nil && f.ListenAddr != "" {
			addr = f.ListenAddr
		}
	}
	boot := quill.Boot(input, interp.NewContext(opts))
	if !boot.Ok {
		return fmt.Errorf("%s", boot.Error.Format())
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		serveOne(boot.Dispatcher, w, r)
	})
	server := &http.Server{Addr: addr, Handler: mux}

	// Supervises the listener alongside a signal-watcher goroutine so
	// ctrl-c shuts the server down instead of killing the process.
	g, gctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "quill serve: listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
		case <-gctx.Done():
		}
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}

func serveOne(d *dispatch.Dispatcher, w http.ResponseWriter, r *http.Request) {
	req, err := translateRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome := quill.Handle(d, req)
	if outcome.Error != nil {
		writeErrorJSON(w, outcome.Error.Message)
		return
	}
	writeResponse(w, outcome.Response)
}

func translateRequest(r *http.Request) (*dispatch.Request, error) {
	headers := map[string]string{}
	for k := range r.Header {
		headers[strings.ToLower(k)] = r.Header.Get(k)
	}
	query := map[string]string{}
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}
	var body string
	hasBody := r.ContentLength != 0 && r.Body != nil
	if hasBody {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		body = string(raw)
		hasBody = len(body) > 0
	}
	return &dispatch.Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Headers:     headers,
		QueryParams: query,
		Body:        body,
		HasBody:     hasBody,
	}, nil
}

func writeResponse(w http.ResponseWriter, resp *dispatch.Response) {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	if s, ok := resp.Body.(interp.StrValue); ok {
		io.WriteString(w, s.String())
		return
	}
	raw, err := stdlib.DumpJSON(resp.Body)
	if err != nil {
		io.WriteString(w, fmt.Sprintf(`{"detail": "failed to serialise response body: %s"}`, err.Error()))
		return
	}
	io.WriteString(w, raw)
}

func writeErrorJSON(w http.ResponseWriter, message string) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	io.WriteString(w, fmt.Sprintf(`{"detail": %q}`, message))
}
