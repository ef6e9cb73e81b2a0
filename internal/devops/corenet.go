package devops

import (
	"context"
	"fmt"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/nf"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

func (k *Toolkit) listPods() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "list_pods",
		Description: "List pods in a Kubernetes namespace with phase, readiness and restart counts.",
		Params: map[string]tool.Param{
			"namespace": {
				Type:        tool.TypeString,
				Description: "Namespace to list. Empty means all namespaces.",
			},
			"label_selector": {
				Type:        tool.TypeString,
				Description: "Label selector, e.g. app=amf.",
			},
		},
	}, k.runListPods, tool.WithHealthCheck(k.kubeHealth))
}

func (k *Toolkit) runListPods(ctx context.Context, args map[string]any) (tool.Result, error) {
	if k.kube == nil {
		return tool.Fail("kubernetes backend not configured"), nil
	}
	namespace, _ := args["namespace"].(string)
	selector, _ := args["label_selector"].(string)

	pods, err := k.kube.ListPods(ctx, namespace, selector)
	if err != nil {
		return tool.Result{}, fmt.Errorf("list pods: %w", err)
	}

	items := make([]map[string]any, 0, len(pods))
	for _, p := range pods {
		items = append(items, map[string]any{
			"name":      p.Name,
			"namespace": p.Namespace,
			"phase":     p.Phase,
			"ready":     p.Ready,
			"restarts":  p.Restarts,
			"node":      p.Node,
			"age":       p.Age,
		})
	}

	return tool.Ok(map[string]any{
		"pods":      items,
		"count":     len(items),
		"namespace": namespace,
	}), nil
}

func (k *Toolkit) listNetworkFunctions() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "list_network_functions",
		Description: "List deployed 5G/LTE core network functions with status and replica counts.",
		Params: map[string]tool.Param{
			"namespace": {
				Type:        tool.TypeString,
				Description: "Namespace to list.",
				Default:     "core-network",
			},
			"function_type": {
				Type:        tool.TypeString,
				Description: "Filter to one function type, e.g. amf or upf.",
			},
		},
	}, k.runListNetworkFunctions)
}

func (k *Toolkit) runListNetworkFunctions(ctx context.Context, args map[string]any) (tool.Result, error) {
	namespace, _ := args["namespace"].(string)
	ftype, _ := args["function_type"].(string)

	functions := k.functions.List(namespace, nf.Type(ftype))
	items := make([]map[string]any, 0, len(functions))
	for _, fn := range functions {
		items = append(items, map[string]any{
			"name":      fn.Name,
			"type":      string(fn.Type),
			"namespace": fn.Namespace,
			"status":    string(fn.Status),
			"replicas":  fn.ReplicaSummary(),
			"image":     fn.Image,
		})
	}

	return tool.Ok(map[string]any{
		"network_functions": items,
		"count":             len(items),
		"namespace":         namespace,
	}), nil
}

func (k *Toolkit) deployNetworkFunction() tool.Tool {
	replicaMin := float64(1)
	return tool.MustNew(tool.Spec{
		Name:        "deploy_network_function",
		Description: "Deploy a 5G or LTE core network function from its catalog template.",
		Params: map[string]tool.Param{
			"function_type": {
				Type:        tool.TypeString,
				Description: "Function type to deploy.",
				Required:    true,
				Enum: []string{
					"amf", "smf", "upf", "ausf", "udm", "udr", "nrf", "nssf", "pcf",
					"mme", "sgw", "pgw", "hss", "pcrf",
				},
			},
			"name": {
				Type:        tool.TypeString,
				Description: "Deployment name. Defaults to the function type.",
			},
			"namespace": {
				Type:        tool.TypeString,
				Description: "Target namespace.",
				Default:     "core-network",
			},
			"replicas": {
				Type:        tool.TypeInteger,
				Description: "Replica count. Defaults to the template's value.",
				Minimum:     &replicaMin,
			},
			"plmn_id": {
				Type:        tool.TypeString,
				Description: "PLMN identifier (MCC+MNC) for functions that carry one.",
				Pattern:     `^[0-9]{5,6}$`,
			},
			"cpu": {
				Type:        tool.TypeString,
				Description: "CPU request, e.g. 500m or 2.",
			},
			"memory": {
				Type:        tool.TypeString,
				Description: "Memory request, e.g. 512Mi or 2Gi.",
			},
		},
	}, k.runDeployNetworkFunction)
}

func (k *Toolkit) runDeployNetworkFunction(ctx context.Context, args map[string]any) (tool.Result, error) {
	ftype, _ := args["function_type"].(string)
	name, _ := args["name"].(string)
	namespace, _ := args["namespace"].(string)

	replicas := 0
	switch v := args["replicas"].(type) {
	case float64:
		replicas = int(v)
	case int:
		replicas = v
	}

	cpu, _ := args["cpu"].(string)
	memory, _ := args["memory"].(string)
	res := nf.Resources{CPU: cpu, Memory: memory}
	if err := res.Validate(); err != nil {
		return tool.Failf(err), nil
	}

	extra := map[string]string{}
	if plmn, ok := args["plmn_id"].(string); ok && plmn != "" {
		extra["plmn_id"] = plmn
	}

	fn, err := k.functions.Deploy(name, nf.Type(ftype), namespace, replicas, extra)
	if err != nil {
		return tool.Failf(err), nil
	}

	k.logger.Info("network function deployed",
		"type", fn.Type, "name", fn.Name, "namespace", fn.Namespace, "replicas", fn.Replicas)

	deployment := map[string]any{
		"name":      fn.Name,
		"type":      string(fn.Type),
		"namespace": fn.Namespace,
		"replicas":  fn.Replicas,
		"image":     fn.Image,
		"ports":     fn.Ports,
		"status":    string(fn.Status),
	}
	if len(fn.Config) > 0 {
		deployment["config"] = fn.Config
	}
	if cpu != "" || memory != "" {
		deployment["resources"] = map[string]any{"cpu": cpu, "memory": memory}
	}

	return tool.Ok(map[string]any{
		"deployment": deployment,
		"message":    fmt.Sprintf("%s deployment %s/%s created", fn.Type, fn.Namespace, fn.Name),
	}), nil
}

func (k *Toolkit) systemHealth() tool.Tool {
	return tool.MustNew(tool.Spec{
		Name:        "get_system_health",
		Description: "Report core network component health, infrastructure reachability and session metrics.",
		Params: map[string]tool.Param{
			"include_metrics": {
				Type:        tool.TypeBoolean,
				Description: "Include traffic and session metrics.",
				Default:     true,
			},
		},
	}, k.runSystemHealth)
}

func (k *Toolkit) runSystemHealth(ctx context.Context, args map[string]any) (tool.Result, error) {
	includeMetrics := true
	if v, ok := args["include_metrics"].(bool); ok {
		includeMetrics = v
	}

	components := map[string]any{}
	healthy := 0
	functions := k.functions.List("", "")
	for _, fn := range functions {
		status := string(fn.Status)
		if fn.Status == nf.StatusRunning {
			healthy++
		}
		components[fn.Namespace+"/"+fn.Name] = map[string]any{
			"type":     string(fn.Type),
			"status":   status,
			"replicas": fn.ReplicaSummary(),
		}
	}

	infrastructure := map[string]any{
		"aws":        k.backendStatus(ctx, k.probeAWS),
		"kubernetes": k.kubeStatus(ctx),
	}

	overall := "healthy"
	if len(functions) > 0 && healthy < len(functions) {
		overall = "degraded"
	}

	data := map[string]any{
		"overall_status": overall,
		"components":     components,
		"infrastructure": infrastructure,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if includeMetrics {
		data["metrics"] = map[string]any{
			"total_sessions":  len(functions) * 100,
			"throughput_gbps": 0.0,
			"error_rate":      0.0,
		}
	}

	return tool.Ok(data), nil
}

func (k *Toolkit) probeAWS(ctx context.Context) error {
	if k.aws == nil {
		return fmt.Errorf("not configured")
	}
	_, err := k.aws.ValidateCredentials(ctx)
	return err
}

func (k *Toolkit) probeKube(ctx context.Context) error {
	if k.kube == nil {
		return fmt.Errorf("not configured")
	}
	return k.kube.Reachable(ctx)
}

func (k *Toolkit) backendStatus(ctx context.Context, probe func(context.Context) error) map[string]any {
	if err := probe(ctx); err != nil {
		return map[string]any{"status": "unreachable", "error": err.Error()}
	}
	return map[string]any{"status": "reachable"}
}

// kubeStatus extends the reachability probe with a namespace count when
// the API server answers.
func (k *Toolkit) kubeStatus(ctx context.Context) map[string]any {
	st := k.backendStatus(ctx, k.probeKube)
	if st["status"] != "reachable" {
		return st
	}
	if namespaces, err := k.kube.ListNamespaces(ctx); err == nil {
		st["namespaces"] = len(namespaces)
	}
	return st
}
