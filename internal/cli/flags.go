package cli

import "flag"

type options struct {
	listenAddr        string
	configPath        string
	maxElements       int
	metricsListenAddr string
	shell             bool
	verbose           bool
	showVersion       bool
}

func parseFlags(args []string) (options, error) {
	opt := options{}
	fs := flag.NewFlagSet("kusari", flag.ContinueOnError)
	fs.StringVar(&opt.listenAddr, "listen", "127.0.0.1:11311", "TCP address to listen on")
	fs.StringVar(&opt.configPath, "config", "", "TOML file with lists to register at start")
	fs.IntVar(&opt.maxElements, "max-elements", 0, "max elements per list; 0 means unbounded")
	fs.StringVar(&opt.metricsListenAddr, "metrics-listen", "", "HTTP address for Prometheus metrics; empty disables")
	fs.BoolVar(&opt.shell, "shell", false, "serve the protocol on stdin/stdout instead of TCP")
	fs.BoolVar(&opt.verbose, "verbose", false, "verbose logging")
	fs.BoolVar(&opt.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opt.maxElements < 0 {
		opt.maxElements = 0
	}

	return opt, nil
}
