// Package awsclient builds and caches per-region AWS service clients for
// the infrastructure tools.
package awsclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	cfgpkg "github.com/sigitp-git/core-network-devops-agent/internal/config"
)

// EC2API is the slice of the EC2 client the tools use.
type EC2API interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
}

// EKSAPI is the slice of the EKS client the tools use.
type EKSAPI interface {
	ListClusters(ctx context.Context, params *eks.ListClustersInput, optFns ...func(*eks.Options)) (*eks.ListClustersOutput, error)
	DescribeCluster(ctx context.Context, params *eks.DescribeClusterInput, optFns ...func(*eks.Options)) (*eks.DescribeClusterOutput, error)
}

// CFNAPI is the slice of the CloudFormation client the tools use.
type CFNAPI interface {
	DescribeStacks(ctx context.Context, params *cloudformation.DescribeStacksInput, optFns ...func(*cloudformation.Options)) (*cloudformation.DescribeStacksOutput, error)
}

// STSAPI validates credentials.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Manager loads AWS configuration once per region and hands out service
// clients built from it.
type Manager struct {
	mu       sync.Mutex
	defaults cfgpkg.AWSConfig
	configs  map[string]aws.Config
	logger   *slog.Logger
}

// NewManager builds a client manager with the configured default region
// and profile.
func NewManager(defaults cfgpkg.AWSConfig, logger *slog.Logger) *Manager {
	return &Manager{
		defaults: defaults,
		configs:  make(map[string]aws.Config),
		logger:   logger.With("component", "aws-clients"),
	}
}

// DefaultRegion returns the fallback region tools use when none is given.
func (m *Manager) DefaultRegion() string { return m.defaults.Region }

// Config returns the SDK config for a region, loading and caching it on
// first use. Empty region means the configured default.
func (m *Manager) Config(ctx context.Context, region string) (aws.Config, error) {
	if region == "" {
		region = m.defaults.Region
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cfg, ok := m.configs[region]; ok {
		return cfg, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if m.defaults.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(m.defaults.Profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config for %s: %w", region, err)
	}

	m.configs[region] = cfg
	m.logger.Debug("aws config loaded", "region", region)
	return cfg, nil
}

// EC2 returns an EC2 client for the region.
func (m *Manager) EC2(ctx context.Context, region string) (EC2API, error) {
	cfg, err := m.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return ec2.NewFromConfig(cfg), nil
}

// EKS returns an EKS client for the region.
func (m *Manager) EKS(ctx context.Context, region string) (EKSAPI, error) {
	cfg, err := m.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return eks.NewFromConfig(cfg), nil
}

// CloudFormation returns a CloudFormation client for the region.
func (m *Manager) CloudFormation(ctx context.Context, region string) (CFNAPI, error) {
	cfg, err := m.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return cloudformation.NewFromConfig(cfg), nil
}

// Bedrock returns a Bedrock runtime client for the region.
func (m *Manager) Bedrock(ctx context.Context, region string) (*bedrockruntime.Client, error) {
	cfg, err := m.Config(ctx, region)
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(cfg), nil
}

// ValidateCredentials calls STS GetCallerIdentity and returns the caller
// ARN, proving the credential chain works.
func (m *Manager) ValidateCredentials(ctx context.Context) (string, error) {
	cfg, err := m.Config(ctx, "")
	if err != nil {
		return "", err
	}
	out, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("get caller identity: %w", err)
	}
	return aws.ToString(out.Arn), nil
}
