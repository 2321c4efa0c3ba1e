package main

import (
	"context"
	"errors"
	"fmt"
	"github.com/fatih/color"
	"github.com/nonvenomous/nextcloud-video-tag-cli/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.design/x/clipboard"
	"golang.org/x/term"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var (
	errNoExtension = errors.New("the provided file path seems incomplete or does not have a file extension")
	errNoPath      = errors.New("missing required argument <filePath...>")
)

func init() {
	// -v is --verbose
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"V"},
		Usage:   "print the version",
	}
}

func main() {
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.WarnLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	app := newApp()
	err := app.RunContext(ctx, hoistFlags(app, os.Args))
	cancel()
	if err != nil {
		color.New(color.FgRed).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "videotag",
		Usage:     "turn a Nautilus WebDAV file path into a <video> tag backed by a Nextcloud public share",
		Version:   "1.0.0",
		ArgsUsage: "<filePath...>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable verbose logging",
			},
			&cli.BoolFlag{
				Name:    "copy",
				Aliases: []string{"c"},
				Usage:   "copy the tag to clipboard",
			},
			&cli.BoolFlag{
				Name:  "verify",
				Usage: "check over WebDAV that the remote file exists before sharing",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "timeout for each request to the server",
			},
			&cli.IntFlag{
				Name:  "retries",
				Usage: "extra attempts after a transport failure or 5xx response",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "path to the yaml config file (default ~/.videotag.yaml)",
			},
			&cli.StringFlag{
				Name:   "endpoint",
				Usage:  "base URL for API calls instead of https://$NEXTCLOUD_DOMAIN",
				Hidden: true,
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logrus.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Action: run,
		Commands: []*cli.Command{
			{
				Name:  "configure",
				Usage: "write the non-secret settings to the config file",
				Action: func(c *cli.Context) error {
					if !c.Bool("verbose") {
						logrus.SetLevel(logrus.InfoLevel)
					}
					services := service.NewServices(false)
					return services.Config().Configure(configPath(c, services))
				},
			},
		},
	}
}

func run(c *cli.Context) error {
	if c.NArg() == 0 {
		_ = cli.ShowAppHelp(c)
		return errNoPath
	}
	// tokens were split by the shell when the path was not quoted
	filePath := strings.Join(c.Args().Slice(), " ")
	if !service.HasExtension(filePath) {
		return errNoExtension
	}

	verbose := c.Bool("verbose")
	services := service.NewServices(!verbose && term.IsTerminal(int(os.Stderr.Fd())))

	cfg, err := services.Config().Load(configPath(c, services), service.EnvLookup())
	if err != nil {
		return err
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}
	if c.IsSet("verify") {
		cfg.Verify = c.Bool("verify")
	}
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}

	logrus.Info("Starting process...")
	videoTag, err := services.Share().Share(c.Context, filePath, cfg)
	if err != nil {
		return err
	}
	logrus.Info("Generated <video> tag")
	fmt.Fprintln(c.App.Writer, videoTag)

	if c.Bool("copy") {
		if err := clipboard.Init(); err != nil {
			logrus.Warnf("cannot access clipboard: %v", err)
			return nil
		}
		clipboard.Write(clipboard.FmtText, []byte(videoTag))
		logrus.Info("tag copied to clipboard")
	}
	return nil
}

func configPath(c *cli.Context, services service.Services) string {
	if p := c.String("config"); p != "" {
		return p
	}
	return services.Config().DefaultPath()
}

// hoistFlags moves options given after the file path in front of it, so
// "videotag <path> -v" behaves like "videotag -v <path>". Tokens after "--"
// and subcommand invocations are left alone.
func hoistFlags(app *cli.App, args []string) []string {
	if len(args) < 2 {
		return args
	}

	takesValue := map[string]bool{}
	for _, f := range append([]cli.Flag{cli.VersionFlag, cli.HelpFlag}, app.Flags...) {
		_, isBool := f.(*cli.BoolFlag)
		for _, name := range f.Names() {
			takesValue[name] = !isBool
		}
	}

	var opts, positional []string
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if tok == "--" {
			positional = append(positional, rest[i+1:]...)
			break
		}
		if !strings.HasPrefix(tok, "-") || tok == "-" {
			if len(positional) == 0 && app.Command(tok) != nil {
				return args
			}
			positional = append(positional, tok)
			continue
		}
		opts = append(opts, tok)
		name, _, hasValue := strings.Cut(strings.TrimLeft(tok, "-"), "=")
		if takesValue[name] && !hasValue && i+1 < len(rest) {
			i++
			opts = append(opts, rest[i])
		}
	}

	out := append([]string{args[0]}, opts...)
	if len(positional) > 0 {
		out = append(out, "--")
		out = append(out, positional...)
	}
	return out
}
