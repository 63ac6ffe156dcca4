package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"unicode/utf8"

	gopher "github.com/knowfox/gopher"
	"github.com/knowfox/gopher/internal/browse"
	"github.com/knowfox/gopher/internal/config"
	"github.com/knowfox/gopher/internal/logging"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

var errBinaryToTerminal = errors.New("refusing to write binary data to a terminal, use -force")

type options struct {
	menu     bool
	search   string
	attrs    bool
	timing   bool
	force    bool
	terminal bool
}

type result struct {
	out    bytes.Buffer
	timing bytes.Buffer
	err    error
}

func main() {
	var (
		configPath  string
		plus        bool
		tlsPolicy   string
		charset     string
		parallel    int
		interactive bool
		opts        options
	)
	flag.StringVar(&configPath, "config", "", "TOML configuration file")
	flag.BoolVar(&plus, "plus", false, "speak Gopher+")
	flag.StringVar(&tlsPolicy, "tls", "", "TLS policy: none, prefer or only")
	flag.StringVar(&charset, "charset", "", "charset of menu text, e.g. iso-8859-1")
	flag.BoolVar(&opts.menu, "menu", false, "parse the response as a menu")
	flag.StringVar(&opts.search, "search", "", "send a search query")
	flag.BoolVar(&opts.attrs, "attrs", false, "fetch Gopher+ attributes (of every item with -menu)")
	flag.BoolVar(&opts.timing, "timing", false, "print timing information to stderr")
	flag.BoolVar(&opts.force, "force", false, "write binary data to a terminal")
	flag.IntVar(&parallel, "parallel", 4, "number of URLs fetched at once")
	flag.BoolVar(&interactive, "i", false, "browse interactively")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] gopher://host[:port]/selector ...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	urls := flag.Args()
	if len(urls) == 0 && !interactive {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			logging.ConfigureRuntime("gopher")
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}
	logger := logging.ConfigureFile("gopher", cfg.Log.Level, cfg.Log.JSON)

	if plus || opts.attrs {
		cfg.Client.Protocol = gopher.GopherPlus
	}
	if tlsPolicy != "" {
		policy, err := gopher.ParseTLSPolicy(tlsPolicy)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid -tls")
		}
		cfg.Client.TLS = policy
	}
	if charset != "" {
		cfg.Client.Charset = charset
	}
	cfg.Client.Logger = &logger

	client, err := gopher.NewClient(cfg.Client)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if interactive {
		if err := browseURLs(ctx, client, urls); err != nil {
			log.Fatal().Err(err).Msg("browser stopped")
		}
		return
	}

	opts.terminal = term.IsTerminal(int(os.Stdout.Fd()))
	results := fetchAll(ctx, client, urls, parallel, opts)

	failed := false
	for i, res := range results {
		_, _ = io.Copy(os.Stdout, &res.out)
		_, _ = io.Copy(os.Stderr, &res.timing)
		if res.err != nil {
			failed = true
			log.Error().Err(res.err).Str("url", urls[i]).Msg("fetch failed")
		}
	}
	if failed {
		os.Exit(1)
	}
}

func browseURLs(ctx context.Context, client *gopher.Client, urls []string) error {
	session := browse.NewSession(client)
	if len(urls) > 0 {
		if _, err := session.Open(ctx, urls[0]); err != nil {
			return err
		}
	}
	editor := browse.NewLineEditor()
	defer editor.Close()
	return browse.Run(ctx, session, editor, os.Stdout)
}

// fetchAll fetches every URL, at most parallel at a time, and returns the
// results in argument order. One failure does not stop the others.
func fetchAll(ctx context.Context, client *gopher.Client, urls []string, parallel int, opts options) []*result {
	results := make([]*result, len(urls))
	g := new(errgroup.Group)
	if parallel < 1 {
		parallel = 1
	}
	g.SetLimit(parallel)
	for i, rawurl := range urls {
		rawurl := rawurl
		res := &result{}
		results[i] = res
		g.Go(func() error {
			res.err = fetch(ctx, client, rawurl, opts, res)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func fetch(ctx context.Context, client *gopher.Client, rawurl string, opts options, res *result) error {
	req, err := gopher.NewRequestWithContext(ctx, rawurl)
	if err != nil {
		return err
	}

	switch {
	case opts.search != "":
		req.Query = opts.search
		menu, err := client.Search(req)
		if err != nil {
			return err
		}
		return printMenu(ctx, client, menu, opts, res)
	case opts.menu:
		menu, err := client.DownloadMenu(req)
		if err != nil {
			return err
		}
		return printMenu(ctx, client, menu, opts, res)
	case opts.attrs:
		port := req.Port
		if port == 0 {
			port = gopher.DefaultPort
		}
		item, err := client.PopulateAttributes(ctx, &gopher.MenuItem{
			Type:     gopher.TypeUnknown,
			Name:     req.Selector,
			Selector: req.Selector,
			Hostname: req.Host,
			Port:     port,
		})
		if err != nil {
			return err
		}
		browse.RenderAttributes(&res.out, item)
		return nil
	}

	resp, err := client.DownloadItem(req)
	if err != nil {
		return err
	}
	if opts.timing {
		printTiming(&res.timing, rawurl, resp)
	}
	if resp.Failed() {
		return fmt.Errorf("%w: %s", gopher.ErrPlusFailure, resp.Header)
	}
	if opts.terminal && !opts.force && !utf8.Valid(resp.Body) {
		return errBinaryToTerminal
	}
	res.out.Write(resp.Body)
	return nil
}

func printMenu(ctx context.Context, client *gopher.Client, menu *gopher.Menu, opts options, res *result) error {
	if opts.attrs {
		var err error
		if menu, err = client.PopulateMenuAttributes(ctx, menu); err != nil {
			return err
		}
	}
	res.out.WriteString(menu.String())
	for _, problem := range menu.Problems {
		fmt.Fprintf(&res.timing, "warning: %v\n", problem)
	}
	if !opts.attrs {
		return nil
	}
	for _, item := range menu.Items {
		if item.Attributes != nil {
			browse.RenderAttributes(&res.out, item)
		}
	}
	return nil
}

func printTiming(w io.Writer, rawurl string, resp *gopher.Response) {
	t := resp.Timing
	fmt.Fprintf(w, "%s\n", rawurl)
	fmt.Fprintf(w, "  protocol:        %s\n", resp.Protocol)
	fmt.Fprintf(w, "  tls:             %t\n", resp.TLSUsed())
	if resp.TLSFallback != nil {
		fmt.Fprintf(w, "  tls fallback:    %v\n", resp.TLSFallback)
	}
	fmt.Fprintf(w, "  header:          %d bytes\n", resp.HeaderSize())
	fmt.Fprintf(w, "  body:            %d bytes\n", resp.BodySize())
	fmt.Fprintf(w, "  total size:      %d bytes\n", resp.Size())
	fmt.Fprintf(w, "  connection wait: %v\n", t.ConnectionWait())
	fmt.Fprintf(w, "  first byte wait: %v\n", t.FirstByteWait())
	fmt.Fprintf(w, "  receiving:       %v\n", t.Receiving())
	fmt.Fprintf(w, "  total:           %v\n", t.Total())
}
