package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/haxii/fastresp/client"
	"github.com/haxii/fastresp/metrics"
	"github.com/haxii/fastresp/result"
)

type getOptions struct {
	method      string
	headers     []string
	data        string
	timeout     time.Duration
	repeat      int
	concurrency int
	printBody   bool
	lines       bool
	dumpMetrics bool
}

func newGetCmd(root *rootOptions) *cobra.Command {
	opts := &getOptions{}
	cmd := &cobra.Command{
		Use:   "get URL...",
		Short: "Send requests and print the status kind of each response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			m := metrics.New(cfg.MetricsNamespace)
			c := newClient(cfg, m)
			defer c.Engine.CloseIdleConnections()

			err = opts.run(cmd.Context(), c, args, cmd.OutOrStdout())
			if opts.dumpMetrics {
				if werr := m.WriteText(cmd.ErrOrStderr()); werr != nil && err == nil {
					err = werr
				}
			}
			return err
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.method, "request", "X", "GET", "request method")
	f.StringArrayVarP(&opts.headers, "header", "H", nil, "request header as 'Name: value', repeatable")
	f.StringVarP(&opts.data, "data", "d", "", "request body, '@file' reads a file and '@-' stdin")
	f.DurationVar(&opts.timeout, "timeout", 0, "timeout of each exchange, body included")
	f.IntVarP(&opts.repeat, "repeat", "n", 1, "times each url is requested")
	f.IntVarP(&opts.concurrency, "concurrency", "c", 4, "requests in flight at once")
	f.BoolVarP(&opts.printBody, "body", "b", false, "print successful response bodies")
	f.BoolVar(&opts.lines, "lines", false, "print the lines of text/event-stream responses as they arrive")
	f.BoolVar(&opts.dumpMetrics, "metrics", false, "print metrics to stderr when done")
	return cmd
}

func (o *getOptions) body() ([]byte, error) {
	switch {
	case len(o.data) == 0:
		return nil, nil
	case o.data == "@-":
		return io.ReadAll(os.Stdin)
	case strings.HasPrefix(o.data, "@"):
		return os.ReadFile(o.data[1:])
	}
	return []byte(o.data), nil
}

func (o *getOptions) newRequest(rawURL string, body []byte) (*client.Request, error) {
	req, err := client.NewRequest(o.method, rawURL)
	if err != nil {
		return nil, err
	}
	for _, h := range o.headers {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return nil, pkgerrors.Errorf("invalid header %q", h)
		}
		req.Header.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	if body != nil {
		req.SetBody(body)
	}
	return req, nil
}

func (o *getOptions) run(ctx context.Context, c *client.Client, urls []string, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := o.body()
	if err != nil {
		return pkgerrors.Wrap(err, "fail to read request body")
	}

	var outLock sync.Mutex
	printf := func(format string, args ...interface{}) {
		outLock.Lock()
		fmt.Fprintf(out, format, args...)
		outLock.Unlock()
	}

	// every request is built before the first one is sent
	reqs := make([]*client.Request, 0, len(urls)*o.repeat)
	for _, rawURL := range urls {
		for i := 0; i < o.repeat; i++ {
			req, err := o.newRequest(rawURL, body)
			if err != nil {
				return err
			}
			reqs = append(reqs, req)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	if o.concurrency > 0 {
		g.SetLimit(o.concurrency)
	}
	for _, req := range reqs {
		req := req
		g.Go(func() error {
			return o.exchange(ctx, c, req, printf)
		})
	}
	return g.Wait()
}

func (o *getOptions) exchange(ctx context.Context, c *client.Client, req *client.Request,
	printf func(string, ...interface{})) error {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	start := time.Now()
	if o.lines {
		return o.streamLines(ctx, c, req, printf)
	}

	var decode client.Decoder
	if o.printBody {
		decode = client.BytesDecoder
	}
	r, err := c.DoResult(ctx, req, decode)
	if err != nil {
		printf("%s %s error %s\n", req.Method, req.URL, err)
		return err
	}
	defer r.Consume()
	printf("%s %s %d %s/%s %s\n", req.Method, req.URL, r.StatusCode(),
		r.Category(), r.Kind(), time.Since(start).Round(time.Millisecond))
	result.OnFailure(r, func(_ *result.Result, err error) {
		printf("  %s\n", err)
	})
	if b, ok := result.PayloadAs[[]byte](r); ok {
		printf("%s\n", b)
	}
	return nil
}

func (o *getOptions) streamLines(ctx context.Context, c *client.Client, req *client.Request,
	printf func(string, ...interface{})) error {
	s, err := c.Lines(ctx, req)
	if err != nil {
		printf("%s %s error %s\n", req.Method, req.URL, err)
		return err
	}
	if s == nil {
		printf("%s %s not an event stream\n", req.Method, req.URL)
		return nil
	}
	defer s.Close()
	for line := range s.C {
		printf("%s\n", line)
	}
	return s.Err()
}
