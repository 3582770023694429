package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"safestep/internal/platform/config"
)

// Load resolves the shared SDK configuration. Static keys are used when both
// are set (localstack, dynamodb-local); otherwise credentials come from the
// default chain (env, shared files, instance role).
func Load(ctx context.Context, cfg config.AWS) (awssdk.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return awssdk.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// Endpoint returns the override endpoint for service clients, or nil to use
// the SDK's resolver.
func Endpoint(cfg config.AWS) *string {
	if cfg.Endpoint == "" {
		return nil
	}
	return awssdk.String(cfg.Endpoint)
}
