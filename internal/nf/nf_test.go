package nf

import (
	"strings"
	"testing"
	"time"
)

func TestDeployUsesTemplateDefaults(t *testing.T) {
	r := NewRegistry()
	r.now = func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) }

	fn, err := r.Deploy("", TypeAMF, "", 0, nil)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if fn.Name != "amf" {
		t.Errorf("name = %q, want amf", fn.Name)
	}
	if fn.Namespace != "core-network" {
		t.Errorf("namespace = %q, want core-network", fn.Namespace)
	}
	if fn.Replicas != 2 {
		t.Errorf("replicas = %d, want 2", fn.Replicas)
	}
	if fn.Image != "core-network/amf:latest" {
		t.Errorf("image = %q", fn.Image)
	}
	if fn.Config["plmn_id"] != "00101" {
		t.Errorf("plmn_id = %q, want 00101", fn.Config["plmn_id"])
	}
	if fn.Status != StatusPending {
		t.Errorf("status = %q, want pending", fn.Status)
	}
}

func TestDeployMergesExtraConfig(t *testing.T) {
	r := NewRegistry()
	fn, err := r.Deploy("amf-eu", TypeAMF, "core-network", 3, map[string]string{"plmn_id": "31026"})
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if fn.Config["plmn_id"] != "31026" {
		t.Errorf("plmn_id = %q, want override 31026", fn.Config["plmn_id"])
	}
	if fn.Config["amf_id"] != "000001" {
		t.Errorf("amf_id default lost: %q", fn.Config["amf_id"])
	}
}

func TestDeployUPFReplicaCap(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Deploy("upf", TypeUPF, "", 2, nil); err == nil {
		t.Fatal("expected error for upf with 2 replicas")
	} else if !strings.Contains(err.Error(), "at most 1") {
		t.Errorf("error = %v", err)
	}
	if _, err := r.Deploy("upf", TypeUPF, "", 1, nil); err != nil {
		t.Fatalf("single-replica upf should deploy: %v", err)
	}
}

func TestDeployUnknownType(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Deploy("x", Type("bgp"), "", 0, nil); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestDeployDuplicate(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Deploy("smf", TypeSMF, "core-network", 0, nil); err != nil {
		t.Fatalf("first Deploy: %v", err)
	}
	if _, err := r.Deploy("smf", TypeSMF, "core-network", 0, nil); err == nil {
		t.Fatal("expected error for duplicate deploy")
	}
}

func TestListFilters(t *testing.T) {
	r := NewRegistry()
	mustDeploy(t, r, "amf", TypeAMF, "core-network")
	mustDeploy(t, r, "smf", TypeSMF, "core-network")
	mustDeploy(t, r, "amf", TypeAMF, "lab")

	all := r.List("", "")
	if len(all) != 3 {
		t.Fatalf("List all = %d, want 3", len(all))
	}
	// Sorted by namespace then name.
	if all[0].Namespace != "core-network" || all[0].Name != "amf" {
		t.Errorf("first = %s/%s", all[0].Namespace, all[0].Name)
	}

	core := r.List("core-network", "")
	if len(core) != 2 {
		t.Errorf("namespace filter = %d, want 2", len(core))
	}
	amfs := r.List("", TypeAMF)
	if len(amfs) != 2 {
		t.Errorf("type filter = %d, want 2", len(amfs))
	}
	both := r.List("lab", TypeAMF)
	if len(both) != 1 {
		t.Errorf("combined filter = %d, want 1", len(both))
	}
}

func TestSetStatusAndRemove(t *testing.T) {
	r := NewRegistry()
	mustDeploy(t, r, "nrf", TypeNRF, "core-network")

	if err := r.SetStatus("core-network", "nrf", StatusRunning, 1); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	fn, ok := r.Get("core-network", "nrf")
	if !ok {
		t.Fatal("Get after SetStatus")
	}
	if fn.Status != StatusRunning || fn.ReplicaSummary() != "1/1" {
		t.Errorf("got %q %q", fn.Status, fn.ReplicaSummary())
	}

	if err := r.Remove("core-network", "nrf"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := r.Get("core-network", "nrf"); ok {
		t.Error("function still present after Remove")
	}
	if err := r.Remove("core-network", "nrf"); err == nil {
		t.Error("expected error removing missing function")
	}
}

func TestResourcesValidate(t *testing.T) {
	valid := []Resources{
		{},
		{CPU: "500m"},
		{CPU: "2"},
		{CPU: "0.5"},
		{Memory: "512Mi"},
		{Memory: "2Gi"},
		{CPU: "1000m", Memory: "1Gi"},
	}
	for _, r := range valid {
		if err := r.Validate(); err != nil {
			t.Errorf("Validate(%+v) = %v, want nil", r, err)
		}
	}
	invalid := []Resources{
		{CPU: "fast"},
		{CPU: "m"},
		{Memory: "512"},
		{Memory: "1GB"},
		{Memory: "Gi"},
	}
	for _, r := range invalid {
		if err := r.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", r)
		}
	}
}

func mustDeploy(t *testing.T, r *Registry, name string, typ Type, ns string) {
	t.Helper()
	if _, err := r.Deploy(name, typ, ns, 0, nil); err != nil {
		t.Fatalf("Deploy %s/%s: %v", ns, name, err)
	}
}
