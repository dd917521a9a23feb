package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MrEthical07/folioauth/internal/httpapi"
	"github.com/MrEthical07/folioauth/internal/rate"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Long:  "Apply pending migrations, start the lockout/session sweeper and serve the auth endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dev {
				viper.Set("log.level", "debug")
				viper.Set("cookie.secure", false)
			}
			return runServe(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Development mode (debug logging, non-secure cookies)")

	_ = viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	v := viper.GetViper()

	rt, err := openRuntime(ctx, v)
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.engine.Config().Cookie.Secure {
		rt.logger.Warn("cookies are not marked Secure; use only for local development")
	}

	var opts []httpapi.Option
	if rt.redis != nil {
		opts = append(opts, httpapi.WithLimitCounter(rate.NewCounter(rt.redis, v.GetString("redis.prefix")+":hr:")))
	}
	srv := httpapi.New(serverConfig(v), rt.engine, rt.db, rt.logger, opts...)
	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
