// Package kube wraps Kubernetes cluster access for the pod and network
// function tools.
package kube

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
)

// PodInfo is the condensed pod view the tools report.
type PodInfo struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Phase     string `json:"phase"`
	Ready     string `json:"ready"`
	Restarts  int32  `json:"restarts"`
	Node      string `json:"node,omitempty"`
	Age       string `json:"age"`
}

// Client is the cluster surface the tools depend on. Fakeable in tests.
type Client interface {
	ListPods(ctx context.Context, namespace string, labelSelector string) ([]PodInfo, error)
	ListNamespaces(ctx context.Context) ([]string, error)
	Reachable(ctx context.Context) error
}

// Manager lazily builds a clientset from kubeconfig or in-cluster
// credentials.
type Manager struct {
	cfg    config.KubeConfig
	logger *slog.Logger

	mu        sync.Mutex
	clientset kubernetes.Interface
	now       func() time.Time
}

// NewManager builds a cluster manager. The connection is dialed on first
// use, not at construction.
func NewManager(cfg config.KubeConfig, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.With("component", "kube"),
		now:    time.Now,
	}
}

// NewManagerWithClientset wires a prebuilt clientset, for tests.
func NewManagerWithClientset(cs kubernetes.Interface, logger *slog.Logger) *Manager {
	return &Manager{
		clientset: cs,
		logger:    logger.With("component", "kube"),
		now:       time.Now,
	}
}

func (m *Manager) client() (kubernetes.Interface, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clientset != nil {
		return m.clientset, nil
	}

	var (
		restCfg *rest.Config
		err     error
	)
	if m.cfg.InCluster {
		restCfg, err = rest.InClusterConfig()
	} else {
		rules := clientcmd.NewDefaultClientConfigLoadingRules()
		if m.cfg.Kubeconfig != "" {
			rules.ExplicitPath = m.cfg.Kubeconfig
		}
		overrides := &clientcmd.ConfigOverrides{}
		if m.cfg.Context != "" {
			overrides.CurrentContext = m.cfg.Context
		}
		restCfg, err = clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("build kubernetes config: %w", err)
	}

	cs, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("build kubernetes client: %w", err)
	}
	m.clientset = cs
	m.logger.Debug("kubernetes client connected", "in_cluster", m.cfg.InCluster)
	return cs, nil
}

// ListPods returns condensed pod info for a namespace. Empty namespace
// lists across the whole cluster.
func (m *Manager) ListPods(ctx context.Context, namespace string, labelSelector string) ([]PodInfo, error) {
	cs, err := m.client()
	if err != nil {
		return nil, err
	}

	list, err := cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{
		LabelSelector: labelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("list pods in %q: %w", namespace, err)
	}

	out := make([]PodInfo, 0, len(list.Items))
	for _, pod := range list.Items {
		out = append(out, m.summarize(pod))
	}
	return out, nil
}

// ListNamespaces returns all namespace names.
func (m *Manager) ListNamespaces(ctx context.Context) ([]string, error) {
	cs, err := m.client()
	if err != nil {
		return nil, err
	}

	list, err := cs.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}

	out := make([]string, 0, len(list.Items))
	for _, ns := range list.Items {
		out = append(out, ns.Name)
	}
	return out, nil
}

// Reachable probes the API server with a cheap version request.
func (m *Manager) Reachable(ctx context.Context) error {
	cs, err := m.client()
	if err != nil {
		return err
	}
	if _, err := cs.Discovery().ServerVersion(); err != nil {
		return fmt.Errorf("api server unreachable: %w", err)
	}
	return nil
}

func (m *Manager) summarize(pod corev1.Pod) PodInfo {
	ready := 0
	var restarts int32
	for _, cs := range pod.Status.ContainerStatuses {
		if cs.Ready {
			ready++
		}
		restarts += cs.RestartCount
	}

	age := ""
	if !pod.CreationTimestamp.IsZero() {
		age = m.now().Sub(pod.CreationTimestamp.Time).Round(time.Second).String()
	}

	return PodInfo{
		Name:      pod.Name,
		Namespace: pod.Namespace,
		Phase:     string(pod.Status.Phase),
		Ready:     fmt.Sprintf("%d/%d", ready, len(pod.Spec.Containers)),
		Restarts:  restarts,
		Node:      pod.Spec.NodeName,
		Age:       age,
	}
}
