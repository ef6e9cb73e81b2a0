package devops

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"

	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

func (k *Toolkit) describeEC2Instances() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "describe_ec2_instances",
		Description: "List EC2 instances in a region, optionally filtered by instance IDs or tag filters.",
		Params: map[string]tool.Param{
			"region": {
				Type:        tool.TypeString,
				Description: "AWS region, e.g. us-east-1. Defaults to the configured region.",
			},
			"instance_ids": {
				Type:        tool.TypeArray,
				Description: "Restrict the listing to these instance IDs.",
			},
			"filters": {
				Type:        tool.TypeObject,
				Description: "Tag filters as name/value pairs, e.g. {\"tag:Environment\": \"prod\"}.",
			},
		},
	}, k.runDescribeEC2Instances, tool.WithHealthCheck(k.awsHealth))
}

func (k *Toolkit) runDescribeEC2Instances(ctx context.Context, args map[string]any) (tool.Result, error) {
	region := k.region(args)
	if k.aws == nil {
		return tool.Fail("aws backend not configured"), nil
	}
	client, err := k.aws.EC2(ctx, region)
	if err != nil {
		return tool.Result{}, err
	}

	input := &ec2.DescribeInstancesInput{}
	if ids := stringSlice(args["instance_ids"]); len(ids) > 0 {
		input.InstanceIds = ids
	}
	if raw, ok := args["filters"].(map[string]any); ok {
		for name, val := range raw {
			v, ok := val.(string)
			if !ok {
				continue
			}
			input.Filters = append(input.Filters, ec2types.Filter{
				Name:   aws.String(name),
				Values: []string{v},
			})
		}
	}

	out, err := client.DescribeInstances(ctx, input)
	if err != nil {
		return tool.Result{}, fmt.Errorf("describe instances: %w", err)
	}

	instances := make([]map[string]any, 0)
	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			entry := map[string]any{
				"instance_id":   aws.ToString(inst.InstanceId),
				"instance_type": string(inst.InstanceType),
				"state":         string(inst.State.Name),
			}
			if inst.PrivateIpAddress != nil {
				entry["private_ip"] = aws.ToString(inst.PrivateIpAddress)
			}
			if inst.PublicIpAddress != nil {
				entry["public_ip"] = aws.ToString(inst.PublicIpAddress)
			}
			if name := tagValue(inst.Tags, "Name"); name != "" {
				entry["name"] = name
			}
			if inst.LaunchTime != nil {
				entry["launch_time"] = inst.LaunchTime.UTC().Format("2006-01-02T15:04:05Z")
			}
			instances = append(instances, entry)
		}
	}

	return tool.Ok(map[string]any{
		"instances": instances,
		"count":     len(instances),
		"region":    region,
	}), nil
}

func (k *Toolkit) describeVPCs() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "describe_vpcs",
		Description: "List VPCs in a region with their CIDR blocks and state.",
		Params: map[string]tool.Param{
			"region": {
				Type:        tool.TypeString,
				Description: "AWS region. Defaults to the configured region.",
			},
			"vpc_ids": {
				Type:        tool.TypeArray,
				Description: "Restrict the listing to these VPC IDs.",
			},
		},
	}, k.runDescribeVPCs, tool.WithHealthCheck(k.awsHealth))
}

func (k *Toolkit) runDescribeVPCs(ctx context.Context, args map[string]any) (tool.Result, error) {
	region := k.region(args)
	if k.aws == nil {
		return tool.Fail("aws backend not configured"), nil
	}
	client, err := k.aws.EC2(ctx, region)
	if err != nil {
		return tool.Result{}, err
	}

	input := &ec2.DescribeVpcsInput{}
	if ids := stringSlice(args["vpc_ids"]); len(ids) > 0 {
		input.VpcIds = ids
	}

	out, err := client.DescribeVpcs(ctx, input)
	if err != nil {
		return tool.Result{}, fmt.Errorf("describe vpcs: %w", err)
	}

	vpcs := make([]map[string]any, 0, len(out.Vpcs))
	for _, vpc := range out.Vpcs {
		entry := map[string]any{
			"vpc_id":     aws.ToString(vpc.VpcId),
			"cidr_block": aws.ToString(vpc.CidrBlock),
			"state":      string(vpc.State),
			"is_default": aws.ToBool(vpc.IsDefault),
		}
		if name := tagValue(vpc.Tags, "Name"); name != "" {
			entry["name"] = name
		}
		vpcs = append(vpcs, entry)
	}

	return tool.Ok(map[string]any{
		"vpcs":   vpcs,
		"count":  len(vpcs),
		"region": region,
	}), nil
}

func (k *Toolkit) describeSubnets() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "describe_subnets",
		Description: "List subnets in a region, optionally restricted to one VPC.",
		Params: map[string]tool.Param{
			"region": {
				Type:        tool.TypeString,
				Description: "AWS region. Defaults to the configured region.",
			},
			"vpc_id": {
				Type:        tool.TypeString,
				Description: "Restrict the listing to subnets of this VPC.",
			},
		},
	}, k.runDescribeSubnets, tool.WithHealthCheck(k.awsHealth))
}

func (k *Toolkit) runDescribeSubnets(ctx context.Context, args map[string]any) (tool.Result, error) {
	region := k.region(args)
	if k.aws == nil {
		return tool.Fail("aws backend not configured"), nil
	}
	client, err := k.aws.EC2(ctx, region)
	if err != nil {
		return tool.Result{}, err
	}

	input := &ec2.DescribeSubnetsInput{}
	if vpcID, ok := args["vpc_id"].(string); ok && vpcID != "" {
		input.Filters = append(input.Filters, ec2types.Filter{
			Name:   aws.String("vpc-id"),
			Values: []string{vpcID},
		})
	}

	out, err := client.DescribeSubnets(ctx, input)
	if err != nil {
		return tool.Result{}, fmt.Errorf("describe subnets: %w", err)
	}

	subnets := make([]map[string]any, 0, len(out.Subnets))
	for _, sn := range out.Subnets {
		entry := map[string]any{
			"subnet_id":         aws.ToString(sn.SubnetId),
			"vpc_id":            aws.ToString(sn.VpcId),
			"cidr_block":        aws.ToString(sn.CidrBlock),
			"availability_zone": aws.ToString(sn.AvailabilityZone),
			"available_ips":     int(aws.ToInt32(sn.AvailableIpAddressCount)),
			"state":             string(sn.State),
		}
		if name := tagValue(sn.Tags, "Name"); name != "" {
			entry["name"] = name
		}
		subnets = append(subnets, entry)
	}

	return tool.Ok(map[string]any{
		"subnets": subnets,
		"count":   len(subnets),
		"region":  region,
	}), nil
}

func (k *Toolkit) describeEKSClusters() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "describe_eks_clusters",
		Description: "List EKS clusters in a region with version, status and endpoint.",
		Params: map[string]tool.Param{
			"region": {
				Type:        tool.TypeString,
				Description: "AWS region. Defaults to the configured region.",
			},
			"cluster_name": {
				Type:        tool.TypeString,
				Description: "Describe only this cluster.",
			},
		},
	}, k.runDescribeEKSClusters, tool.WithHealthCheck(k.awsHealth))
}

func (k *Toolkit) runDescribeEKSClusters(ctx context.Context, args map[string]any) (tool.Result, error) {
	region := k.region(args)
	if k.aws == nil {
		return tool.Fail("aws backend not configured"), nil
	}
	client, err := k.aws.EKS(ctx, region)
	if err != nil {
		return tool.Result{}, err
	}

	var names []string
	if name, ok := args["cluster_name"].(string); ok && name != "" {
		names = []string{name}
	} else {
		listed, err := client.ListClusters(ctx, &eks.ListClustersInput{})
		if err != nil {
			return tool.Result{}, fmt.Errorf("list clusters: %w", err)
		}
		names = listed.Clusters
	}

	clusters := make([]map[string]any, 0, len(names))
	for _, name := range names {
		desc, err := client.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
		if err != nil {
			return tool.Result{}, fmt.Errorf("describe cluster %s: %w", name, err)
		}
		c := desc.Cluster
		clusters = append(clusters, map[string]any{
			"name":     aws.ToString(c.Name),
			"version":  aws.ToString(c.Version),
			"status":   string(c.Status),
			"endpoint": aws.ToString(c.Endpoint),
		})
	}

	return tool.Ok(map[string]any{
		"clusters": clusters,
		"count":    len(clusters),
		"region":   region,
	}), nil
}

func (k *Toolkit) describeStacks() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "describe_stacks",
		Description: "List CloudFormation stacks in a region with their status.",
		Params: map[string]tool.Param{
			"region": {
				Type:        tool.TypeString,
				Description: "AWS region. Defaults to the configured region.",
			},
			"stack_name": {
				Type:        tool.TypeString,
				Description: "Describe only this stack.",
			},
		},
	}, k.runDescribeStacks, tool.WithHealthCheck(k.awsHealth))
}

func (k *Toolkit) runDescribeStacks(ctx context.Context, args map[string]any) (tool.Result, error) {
	region := k.region(args)
	if k.aws == nil {
		return tool.Fail("aws backend not configured"), nil
	}
	client, err := k.aws.CloudFormation(ctx, region)
	if err != nil {
		return tool.Result{}, err
	}

	input := &cloudformation.DescribeStacksInput{}
	if name, ok := args["stack_name"].(string); ok && name != "" {
		input.StackName = aws.String(name)
	}

	out, err := client.DescribeStacks(ctx, input)
	if err != nil {
		return tool.Result{}, fmt.Errorf("describe stacks: %w", err)
	}

	stacks := make([]map[string]any, 0, len(out.Stacks))
	for _, st := range out.Stacks {
		entry := map[string]any{
			"stack_name": aws.ToString(st.StackName),
			"status":     string(st.StackStatus),
		}
		if st.CreationTime != nil {
			entry["created"] = st.CreationTime.UTC().Format("2006-01-02T15:04:05Z")
		}
		if st.Description != nil {
			entry["description"] = aws.ToString(st.Description)
		}
		stacks = append(stacks, entry)
	}

	return tool.Ok(map[string]any{
		"stacks": stacks,
		"count":  len(stacks),
		"region": region,
	}), nil
}

func tagValue(tags []ec2types.Tag, key string) string {
	for _, t := range tags {
		if aws.ToString(t.Key) == key {
			return aws.ToString(t.Value)
		}
	}
	return ""
}
