package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/zoobzio/bucketry"
	"github.com/zoobzio/bucketry/gcs"
	"github.com/zoobzio/bucketry/internal/config"
	"github.com/zoobzio/bucketry/internal/logger"
	"github.com/zoobzio/bucketry/local"
)

// app carries the state shared by subcommands.
type app struct {
	v        *viper.Viper
	cfg      config.Config
	log      *slog.Logger
	resolver *bucketry.Resolver
	closeLog func(context.Context)
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	a := &app{v: v}

	root := &cobra.Command{
		Use:          "bucketry",
		Short:        "Resolve bucket URLs and manage image bundles",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.cfg = config.Load(a.v)
			a.log = logger.New(cmd.ErrOrStderr(), a.cfg.LogLevel, a.cfg.LogFormat)
			a.resolver = bucketry.NewResolver(bucketry.NewViperEnv(a.v))
			a.closeLog = bridgeSignals(a.log)
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if a.closeLog != nil {
				a.closeLog(cmd.Context())
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("public-dir", bucketry.LocalPublicDir, "directory holding local-disk buckets")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("gcs-endpoint", "", "GCS endpoint override, e.g. a fake-gcs-server")
	_ = v.BindPFlag(config.KeyPublicDir, flags.Lookup("public-dir"))
	_ = v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	_ = v.BindPFlag(config.KeyLogFormat, flags.Lookup("log-format"))
	_ = v.BindPFlag(config.KeyGCSEndpoint, flags.Lookup("gcs-endpoint"))

	root.AddCommand(
		a.bucketsCmd(),
		a.urlCmd(),
		a.localPathCmd(),
		a.realNameCmd(),
		a.validateCmd(),
		a.uploadCmd(),
		a.fetchCmd(),
	)
	return root
}

func (a *app) bucketsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "buckets",
		Short: "List registered buckets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "BUCKET\tCDN\tREAL BUCKET")
			for _, key := range bucketry.BucketKeys() {
				entry, _ := bucketry.LookupBucket(string(key))
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, orDash(entry.CDNDomain), orDash(entry.RealBucketName))
			}
			return w.Flush()
		},
	}
}

func (a *app) urlCmd() *cobra.Command {
	var noCDN bool
	cmd := &cobra.Command{
		Use:   "url BUCKET PATH",
		Short: "Print the URL serving PATH from BUCKET",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []bucketry.URLOption
			if noCDN {
				opts = append(opts, bucketry.WithoutCDN())
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.resolver.BucketURL(args[0], args[1], opts...))
			return nil
		},
	}
	cmd.Flags().BoolVar(&noCDN, "no-cdn", false, "address storage directly even if the bucket has a CDN")
	return cmd
}

func (a *app) localPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "local-path BUCKET PATH",
		Short: "Print the local filesystem path for PATH in BUCKET",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := bucketry.ParseBucketKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.resolver.LocalPath(key, args[1]))
			return nil
		},
	}
}

func (a *app) realNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "real-name BUCKET",
		Short: "Print the backing bucket name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), bucketry.RealBucketName(args[0]))
			return nil
		},
	}
}

type validator func(data []byte, strict bool) (any, error)

func schemaValidator[T any](s bucketry.Schema[T]) validator {
	return func(data []byte, strict bool) (any, error) {
		if strict {
			return s.Strict().ValidateJSON(data)
		}
		return s.ValidateJSON(data)
	}
}

var validators = map[string]validator{
	"image-buffer":   schemaValidator(bucketry.ImageBufferBundleSchema),
	"image-cloud":    schemaValidator(bucketry.ImageCloudBundleSchema),
	"bucketed-image": schemaValidator(bucketry.BucketedImageCloudBundleSchema),
	"image-urls":     schemaValidator(bucketry.ImageURLsSchema),
}

func (a *app) validateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate SCHEMA FILE",
		Short: "Validate a JSON document against an image bundle schema",
		Long:  "SCHEMA is one of image-buffer, image-cloud, bucketed-image, image-urls. FILE may be - for stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			validate, ok := validators[args[0]]
			if !ok {
				return fmt.Errorf("unknown schema %q", args[0])
			}
			data, err := readInput(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			value, err := validate(data, strict)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(value)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "reject keys the schema does not declare")
	return cmd
}

func (a *app) uploadCmd() *cobra.Command {
	var slotFiles []string
	cmd := &cobra.Command{
		Use:   "upload BUCKET PREFIX --slot SLOT=FILE...",
		Short: "Upload an image bundle and print its URLs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := bucketry.ParseBucketKey(args[0])
			if err != nil {
				return err
			}
			bundle, err := readBundle(slotFiles)
			if err != nil {
				return err
			}
			store, release, err := a.imageStore(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			urls, err := store.Upload(cmd.Context(), key, args[1], bundle)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(urls)
		},
	}
	cmd.Flags().StringArrayVar(&slotFiles, "slot", nil, "SLOT=FILE pair, repeatable")
	return cmd
}

func (a *app) fetchCmd() *cobra.Command {
	var outDir string
	cmd := &cobra.Command{
		Use:   "fetch BUCKET PREFIX",
		Short: "Download an image bundle into a directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := bucketry.ParseBucketKey(args[0])
			if err != nil {
				return err
			}
			store, release, err := a.imageStore(cmd.Context())
			if err != nil {
				return err
			}
			defer release()
			bundle, err := store.Fetch(cmd.Context(), key, args[1])
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, local.FileModeForDirs); err != nil {
				return err
			}
			for _, slot := range bundle.Populated() {
				data, _ := bundle.Get(slot)
				file := filepath.Join(outDir, string(slot)+slot.Ext())
				if err := os.WriteFile(file, data, local.FileModeForFiles); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), file)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "output directory")
	return cmd
}

// imageStore mounts every registered bucket on local disk or GCS,
// depending on the current local-disk mode. The caller must call release
// once done with the store.
func (a *app) imageStore(ctx context.Context) (store *bucketry.ImageStore, release func(), err error) {
	mounts := make(map[bucketry.BucketKey]bucketry.BucketProvider)
	if a.resolver.LocalDisk() {
		for _, key := range bucketry.BucketKeys() {
			mounts[key] = local.ForBucket(a.cfg.PublicDir, key)
		}
		a.log.Debug("mounted local buckets", "public_dir", a.cfg.PublicDir)
		return bucketry.NewImageStore(a.resolver, mounts), func() {}, nil
	}

	client, err := gcs.NewClient(ctx, a.cfg.GCSEndpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("gcs client: %w", err)
	}
	for _, key := range bucketry.BucketKeys() {
		mounts[key] = gcs.ForBucket(client, key)
	}
	a.log.Debug("mounted gcs buckets", "endpoint", a.cfg.GCSEndpoint)
	return bucketry.NewImageStore(a.resolver, mounts), a.closer(client), nil
}

// closer returns a func that closes c once, logging any error.
func (a *app) closer(c io.Closer) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := c.Close(); err != nil {
				a.log.Warn("close storage client", "error", err)
			}
		})
	}
}

func readBundle(pairs []string) (bucketry.ImageBufferBundle, error) {
	var bundle bucketry.ImageBufferBundle
	known := make(map[string]bucketry.Slot)
	for _, s := range bucketry.Slots() {
		known[string(s)] = s
	}
	for _, pair := range pairs {
		name, file, ok := strings.Cut(pair, "=")
		if !ok {
			return bundle, fmt.Errorf("invalid --slot %q, want SLOT=FILE", pair)
		}
		slot, ok := known[name]
		if !ok {
			return bundle, fmt.Errorf("unknown slot %q", name)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return bundle, err
		}
		bundle.Set(slot, data)
	}
	if bundle.Empty() {
		return bundle, errors.New("no slots given")
	}
	return bundle, nil
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
