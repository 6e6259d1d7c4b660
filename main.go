package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/tobiasfamos/fs3/cache"
	"github.com/tobiasfamos/fs3/controller"
	"github.com/tobiasfamos/fs3/fs3"
	"github.com/tobiasfamos/fs3/logging"
	"github.com/tobiasfamos/fs3/proto"
	"github.com/tobiasfamos/fs3/transport"
)

func main() {
	var (
		logLevel, logFormat string
		logger              *slog.Logger
	)

	root := &cobra.Command{
		Use:           "fs3",
		Short:         "FS3 storage controller and client shell",
		Long:          "Serve a track/sector storage controller, or drive one through an interactive file shell",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			format, err := logging.ParseFormat(logFormat)
			if err != nil {
				return err
			}
			logger = logging.New(os.Stderr, logging.Options{Level: level, Format: format})
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "debug|info|warn|error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "text|json")

	// Serve command
	var listen, image string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a storage controller backed by memory or a disk image",
		RunE: func(_ *cobra.Command, _ []string) error {
			return serve(logger, listen, image)
		},
	}
	serveCmd.Flags().StringVar(&listen, "listen", net.JoinHostPort(transport.DefaultAddress, strconv.Itoa(transport.DefaultPort)), "address to listen on")
	serveCmd.Flags().StringVar(&image, "image", "", "disk image file; empty keeps sectors in memory")
	root.AddCommand(serveCmd)

	// Shell command
	var (
		address           string
		port, cacheLines  int
		cacheSize, policy string
	)

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive file shell against a controller",
		RunE: func(_ *cobra.Command, _ []string) error {
			lines := cacheLines
			if cacheSize != "" {
				var err error
				if lines, err = linesFor(cacheSize); err != nil {
					return err
				}
			}
			p, err := cache.ParsePolicy(policy)
			if err != nil {
				return err
			}
			return shell(logger, transport.Config{Address: address, Port: port, Logger: logger}, lines, p)
		},
	}
	shellCmd.Flags().StringVar(&address, "address", transport.DefaultAddress, "controller host")
	shellCmd.Flags().IntVar(&port, "port", transport.DefaultPort, "controller port")
	shellCmd.Flags().IntVar(&cacheLines, "cache-lines", cache.DefaultCapacity, "sector cache lines; 0 disables the cache")
	shellCmd.Flags().StringVar(&cacheSize, "cache-size", "", "sector cache size (e.g. 512KB, 2MB); overrides --cache-lines")
	shellCmd.Flags().StringVar(&policy, "policy", cache.PolicyLastAccessed.String(), "cache eviction policy: last-accessed|lru")
	root.AddCommand(shellCmd)

	if err := root.Execute(); err != nil {
		abort(err.Error())
	}
}

func serve(logger *slog.Logger, listen string, image string) error {
	var disk controller.Disk = controller.NewRAMDisk(proto.DefaultGeometry)
	if image != "" {
		d, err := controller.OpenImageDisk(image, proto.Geometry{})
		if err != nil {
			return fmt.Errorf("opening image %s: %w", image, err)
		}
		disk = d
	}
	defer disk.Close()

	server := controller.NewServer(controller.New(disk, controller.Config{Logger: logger}), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		server.Close()
	}()

	fmt.Printf("Serving FS3 controller on %s\n", listen)
	err := server.ListenAndServe(listen)
	if errors.Is(err, controller.ErrServerClosed) {
		return nil
	}
	return err
}

func shell(logger *slog.Logger, cfg transport.Config, lines int, policy cache.Policy) error {
	t := transport.New(cfg)

	var c *cache.SectorCache
	if lines > 0 {
		var err error
		c, err = cache.Open(cache.Config{Capacity: lines, Policy: policy, Logger: logger})
		if err != nil {
			return err
		}
	}

	driver, err := fs3.New(t, c, fs3.Config{Logger: logger})
	if err != nil {
		return err
	}

	logging.For(logger, logging.ComponentCLI).Info("shell started", "controller", t.Address(), "cache_lines", lines, "policy", policy.String())

	cli := NewCLI(driver, t)
	for {
		cmd := prompt(fmt.Sprintf("FS3 @ %s>", t.Address()))
		response, cont := cli.Handle(cmd)
		fmt.Println(response)
		if !cont {
			return nil
		}
	}
}

// linesFor converts a cache size such as "2MB" into a number of sector
// lines.
func linesFor(size string) (int, error) {
	var s datasize.ByteSize
	if err := s.UnmarshalText([]byte(size)); err != nil {
		return 0, fmt.Errorf("invalid cache size %q: %w", size, err)
	}
	return int(s.Bytes() / proto.SectorSize), nil
}

var stdin = bufio.NewReader(os.Stdin)

// prompt reads one command line. End of input reads as "exit".
func prompt(label string) string {
	var out string

	for {
		fmt.Fprint(os.Stderr, label+" ")
		line, err := stdin.ReadString('\n')
		if err != nil && line == "" {
			return "exit"
		}
		out = strings.TrimSpace(line)
		if out != "" {
			break
		}
	}

	return out
}

func abort(msg string) {
	fmt.Printf("Error: %s\n", msg)
	os.Exit(1)
}
