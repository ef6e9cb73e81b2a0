// Package devops provides the agent's infrastructure tools: EC2, VPC,
// EKS and CloudFormation discovery on AWS, pod listing on Kubernetes,
// and the core-network function lifecycle.
package devops

import (
	"context"
	"log/slog"

	"github.com/sigitp-git/core-network-devops-agent/internal/awsclient"
	"github.com/sigitp-git/core-network-devops-agent/internal/kube"
	"github.com/sigitp-git/core-network-devops-agent/internal/nf"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

// AWSProvider hands out regional AWS clients. *awsclient.Manager
// implements it; tests substitute fakes.
type AWSProvider interface {
	DefaultRegion() string
	EC2(ctx context.Context, region string) (awsclient.EC2API, error)
	EKS(ctx context.Context, region string) (awsclient.EKSAPI, error)
	CloudFormation(ctx context.Context, region string) (awsclient.CFNAPI, error)
	ValidateCredentials(ctx context.Context) (string, error)
}

// Toolkit builds the infrastructure tools against shared backends.
type Toolkit struct {
	aws       AWSProvider
	kube      kube.Client
	functions *nf.Registry
	logger    *slog.Logger
}

// NewToolkit wires the toolkit. Either backend may be nil; the tools
// that need it then report a declared failure instead of panicking.
func NewToolkit(aws AWSProvider, kubeClient kube.Client, functions *nf.Registry, logger *slog.Logger) *Toolkit {
	if functions == nil {
		functions = nf.NewRegistry()
	}
	return &Toolkit{
		aws:       aws,
		kube:      kubeClient,
		functions: functions,
		logger:    logger.With("component", "devops"),
	}
}

// Tools returns every tool in the kit, in registration order.
func (k *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{
		k.describeEC2Instances(),
		k.describeVPCs(),
		k.describeSubnets(),
		k.describeEKSClusters(),
		k.describeStacks(),
		k.listPods(),
		k.listNetworkFunctions(),
		k.deployNetworkFunction(),
		k.systemHealth(),
	}
}

// Register adds the whole kit to a registry.
func (k *Toolkit) Register(reg *tool.Registry) error {
	for _, t := range k.Tools() {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// awsHealth probes the credential chain for the AWS-backed tools.
func (k *Toolkit) awsHealth(ctx context.Context) map[string]any {
	if k.aws == nil {
		return map[string]any{"status": "unhealthy", "error": "aws backend not configured"}
	}
	arn, err := k.aws.ValidateCredentials(ctx)
	if err != nil {
		return map[string]any{"status": "unhealthy", "error": err.Error()}
	}
	return map[string]any{"status": "healthy", "caller_arn": arn, "region": k.aws.DefaultRegion()}
}

// kubeHealth probes API server reachability for the cluster tools.
func (k *Toolkit) kubeHealth(ctx context.Context) map[string]any {
	if k.kube == nil {
		return map[string]any{"status": "unhealthy", "error": "kubernetes backend not configured"}
	}
	if err := k.kube.Reachable(ctx); err != nil {
		return map[string]any{"status": "unhealthy", "error": err.Error()}
	}
	return map[string]any{"status": "healthy"}
}

// region resolves the effective region from validated args.
func (k *Toolkit) region(args map[string]any) string {
	if r, ok := args["region"].(string); ok && r != "" {
		return r
	}
	if k.aws != nil {
		return k.aws.DefaultRegion()
	}
	return ""
}

// stringSlice coerces a validated array argument to []string, skipping
// non-string elements.
func stringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
