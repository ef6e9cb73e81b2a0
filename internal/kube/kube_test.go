package kube

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes/fake"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testPod(name, namespace, node string, phase corev1.PodPhase, ready bool, restarts int32) *corev1.Pod {
	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Namespace:         namespace,
			Labels:            map[string]string{"app": name},
			CreationTimestamp: metav1.NewTime(time.Now().Add(-time.Hour)),
		},
		Spec: corev1.PodSpec{
			NodeName:   node,
			Containers: []corev1.Container{{Name: "main"}},
		},
		Status: corev1.PodStatus{
			Phase: phase,
			ContainerStatuses: []corev1.ContainerStatus{
				{Name: "main", Ready: ready, RestartCount: restarts},
			},
		},
	}
}

func TestListPods(t *testing.T) {
	cs := fake.NewSimpleClientset(
		testPod("amf-0", "ran", "worker-1", corev1.PodRunning, true, 0),
		testPod("smf-0", "ran", "worker-2", corev1.PodPending, false, 3),
		testPod("web-0", "default", "worker-1", corev1.PodRunning, true, 0),
	)
	m := NewManagerWithClientset(cs, testLogger())

	pods, err := m.ListPods(context.Background(), "ran", "")
	if err != nil {
		t.Fatalf("ListPods failed: %v", err)
	}
	if len(pods) != 2 {
		t.Fatalf("expected 2 pods in ran, got %d", len(pods))
	}

	byName := map[string]PodInfo{}
	for _, p := range pods {
		byName[p.Name] = p
	}
	amf := byName["amf-0"]
	if amf.Phase != "Running" || amf.Ready != "1/1" || amf.Node != "worker-1" {
		t.Errorf("unexpected amf-0 summary: %+v", amf)
	}
	smf := byName["smf-0"]
	if smf.Ready != "0/1" || smf.Restarts != 3 {
		t.Errorf("unexpected smf-0 summary: %+v", smf)
	}
	if amf.Age == "" {
		t.Error("expected age to be computed")
	}
}

func TestListPodsAllNamespaces(t *testing.T) {
	cs := fake.NewSimpleClientset(
		testPod("a", "ns1", "n", corev1.PodRunning, true, 0),
		testPod("b", "ns2", "n", corev1.PodRunning, true, 0),
	)
	m := NewManagerWithClientset(cs, testLogger())

	pods, err := m.ListPods(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ListPods failed: %v", err)
	}
	if len(pods) != 2 {
		t.Errorf("expected 2 pods across namespaces, got %d", len(pods))
	}
}

func TestListNamespaces(t *testing.T) {
	cs := fake.NewSimpleClientset(
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "ran"}},
		&corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: "core"}},
	)
	m := NewManagerWithClientset(cs, testLogger())

	namespaces, err := m.ListNamespaces(context.Background())
	if err != nil {
		t.Fatalf("ListNamespaces failed: %v", err)
	}
	if len(namespaces) != 2 {
		t.Errorf("expected 2 namespaces, got %v", namespaces)
	}
}
