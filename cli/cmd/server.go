package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/seijimatsuda/session-planner-beta/server/auth"
	"github.com/seijimatsuda/session-planner-beta/server/service"
	"github.com/seijimatsuda/session-planner-beta/server/storage"
	"github.com/spf13/cobra"
)

var (
	serverPort                 int
	serverLogLevel             string
	serverChunkCeiling         int64
	serverSignedURLTTLMinutes  int
	serverLedgerPath           string
	serverDownloaderBin        string
	serverFFmpegBin            string
	serverMaxDownloadMegabytes int64

	// Directory storage provider options
	serverDataDir          string
	serverURLSigningSecret string

	// S3 storage provider options
	serverS3Endpoint  string
	serverS3AccessKey string
	serverS3SecretKey string
	serverS3Bucket    string
	serverS3UseTLS    bool
	serverS3Region    string

	// Auth backend options
	serverAuthEndpoint string
	serverAuthAPIKey   string
	serverJWTSecret    string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the media server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		svc := service.NewMediaService()
		logLevel := slog.LevelInfo
		if serverLogLevel != "" {
			switch serverLogLevel {
			case "debug":
				logLevel = slog.LevelDebug
			case "info":
				logLevel = slog.LevelInfo
			case "warn":
				logLevel = slog.LevelWarn
			case "error":
				logLevel = slog.LevelError
			default:
				bailf("invalid log level: %s", serverLogLevel)
			}
		}
		s3requested := serverS3Endpoint != "" ||
			serverS3AccessKey != "" ||
			serverS3SecretKey != "" ||
			serverS3Bucket != ""
		if serverDataDir != "" && s3requested {
			bailf("cannot specify both --data-dir and S3 options")
		}
		if serverDataDir == "" && !s3requested {
			bailf("must specify either --data-dir or S3 options")
		}

		var store storage.Provider
		if serverDataDir == "" {
			mc, err := minio.New(serverS3Endpoint, &minio.Options{
				Creds:  credentials.NewStaticV4(serverS3AccessKey, serverS3SecretKey, ""),
				Secure: serverS3UseTLS,
				Region: serverS3Region,
			})
			if err != nil {
				bailf("error creating S3 client: %s", err)
			}
			store = storage.NewS3Store(mc, serverS3Bucket)
		} else {
			secret := serverURLSigningSecret
			if secret == "" {
				secret = uuid.NewString()
			}
			var err error
			store, err = storage.NewFileStore(serverDataDir, secret)
			if err != nil {
				bailf("error creating file store: %s", err)
			}
		}

		var validator auth.Validator
		switch {
		case serverAuthEndpoint != "" && serverJWTSecret != "":
			bailf("cannot specify both --auth-endpoint and --jwt-secret")
		case serverAuthEndpoint != "":
			validator = auth.NewRemoteValidator(serverAuthEndpoint, serverAuthAPIKey)
		case serverJWTSecret != "":
			validator = auth.NewJWTValidator(serverJWTSecret)
		default:
			bailf("must specify either --auth-endpoint or --jwt-secret")
		}

		opts := []service.Option{
			service.WithPort(serverPort),
			service.WithLogLevel(logLevel),
			service.WithStorageProvider(store),
			service.WithAuthValidator(validator),
			service.WithSignedURLTTL(time.Duration(serverSignedURLTTLMinutes) * time.Minute),
			service.WithChunkCeiling(serverChunkCeiling),
			service.WithLedgerPath(serverLedgerPath),
			service.WithDownloaderBin(serverDownloaderBin),
			service.WithFFmpegBin(serverFFmpegBin),
			service.WithMaxDownloadBytes(serverMaxDownloadMegabytes * 1024 * 1024),
		}
		if err := svc.Start(ctx, opts...); err != nil {
			bailf("Shutdown error: %s", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.PersistentFlags().IntVarP(&serverPort, "port", "p", 8089, "Port to listen on")
	serverCmd.PersistentFlags().StringVarP(&serverLogLevel, "log-level", "l", "info", "Log level")
	serverCmd.PersistentFlags().Int64VarP(&serverChunkCeiling, "chunk-ceiling", "", 1000000, "Maximum bytes served per range response")
	serverCmd.PersistentFlags().IntVarP(&serverSignedURLTTLMinutes, "signed-url-ttl", "", 60, "Signed URL validity in minutes")
	serverCmd.PersistentFlags().StringVarP(&serverLedgerPath, "ledger-path", "", "downloads.db", "Download ledger database location")
	serverCmd.PersistentFlags().StringVarP(&serverDownloaderBin, "downloader-bin", "", "yt-dlp", "Video downloader binary")
	serverCmd.PersistentFlags().StringVarP(&serverFFmpegBin, "ffmpeg-bin", "", "ffmpeg", "ffmpeg binary")
	serverCmd.PersistentFlags().Int64VarP(&serverMaxDownloadMegabytes, "max-download-size", "", 50, "Acquired video size cap in megabytes")

	serverCmd.PersistentFlags().StringVarP(&serverDataDir, "data-dir", "d", "", "Data directory (for file storage)")
	serverCmd.PersistentFlags().StringVar(&serverURLSigningSecret, "url-signing-secret", "", "URL signing secret (for file storage; random if unset)")

	serverCmd.PersistentFlags().StringVar(&serverS3Endpoint, "s3-endpoint", "", "S3 endpoint (for S3 storage)")
	serverCmd.PersistentFlags().StringVar(&serverS3AccessKey, "s3-access-key-id", "", "S3 access key ID (for S3 storage)")
	serverCmd.PersistentFlags().StringVar(&serverS3SecretKey, "s3-secret-access-key", "", "S3 secret access key (for S3 storage)")
	serverCmd.PersistentFlags().StringVar(&serverS3Bucket, "s3-bucket", "", "S3 bucket (for S3 storage)")
	serverCmd.PersistentFlags().BoolVar(&serverS3UseTLS, "s3-use-tls", true, "Use TLS for S3 (for S3 storage)")
	serverCmd.PersistentFlags().StringVar(&serverS3Region, "s3-region", "", "S3 region (for S3 storage)")

	serverCmd.PersistentFlags().StringVar(&serverAuthEndpoint, "auth-endpoint", "", "User endpoint of the auth service (for remote auth)")
	serverCmd.PersistentFlags().StringVar(&serverAuthAPIKey, "auth-api-key", "", "API key sent to the auth service (for remote auth)")
	serverCmd.PersistentFlags().StringVar(&serverJWTSecret, "jwt-secret", "", "HS256 secret for local token validation")
}
