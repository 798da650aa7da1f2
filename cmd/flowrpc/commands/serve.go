package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/flowrpc/flowrpc/examples/greeter/server"
	flowserver "github.com/flowrpc/flowrpc/server"
)

// NewServeCommand builds the "serve" subcommand: it starts a server
// hosting the bundled Greeter demo service, configured by flags, a
// config file, or FLOWRPC_-prefixed environment variables (§6 external
// interfaces, bound the way the teacher's cobra commands bind flags).
func NewServeCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a flowrpc server hosting the Greeter demo service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(v)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "server host")
	flags.Int("port", 8080, "server port")
	flags.String("config", "", "configuration file path")
	flags.Uint32("max-message-size", 4*1024*1024, "maximum gRPC message size in bytes")
	flags.Uint32("max-concurrent-streams", 100, "maximum concurrent streams per connection")
	flags.Duration("graceful-timeout", 30*time.Second, "graceful shutdown timeout")

	_ = v.BindPFlags(flags)
	v.SetEnvPrefix("FLOWRPC")
	v.AutomaticEnv()

	return cmd
}

func runServe(v *viper.Viper) error {
	if cfgFile := v.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	srv := flowserver.New(
		flowserver.WithMaxMessageSize(v.GetUint32("max-message-size")),
		flowserver.WithMaxConcurrentStreams(v.GetUint32("max-concurrent-streams")),
		flowserver.WithGracefulTimeout(v.GetDuration("graceful-timeout")),
		flowserver.WithLogger(logger),
	)
	if err := srv.RegisterService(server.ServiceDesc(server.Greeter{})); err != nil {
		return fmt.Errorf("register greeter service: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", v.GetString("host"), v.GetInt("port"))
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.Serve(lis)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), v.GetDuration("graceful-timeout"))
	defer cancel()
	return srv.Shutdown(ctx)
}
