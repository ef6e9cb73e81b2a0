// Package nf models the 5G and LTE core network functions the agent
// deploys and tracks.
package nf

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Type identifies a network function.
type Type string

const (
	// 5G core.
	TypeAMF  Type = "amf"
	TypeSMF  Type = "smf"
	TypeUPF  Type = "upf"
	TypeAUSF Type = "ausf"
	TypeUDM  Type = "udm"
	TypeUDR  Type = "udr"
	TypeNRF  Type = "nrf"
	TypeNSSF Type = "nssf"
	TypePCF  Type = "pcf"

	// LTE core.
	TypeMME  Type = "mme"
	TypeSGW  Type = "sgw"
	TypePGW  Type = "pgw"
	TypeHSS  Type = "hss"
	TypePCRF Type = "pcrf"
)

// Status is the lifecycle state of a deployed function.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusFailed   Status = "failed"
	StatusStopped  Status = "stopped"
	StatusScaling  Status = "scaling"
	StatusUpdating Status = "updating"
)

// Template is the deployable shape of one function type.
type Template struct {
	Type            Type              `json:"type"`
	Description     string            `json:"description"`
	Image           string            `json:"image"`
	Ports           []int             `json:"ports"`
	DefaultReplicas int               `json:"default_replicas"`
	// MaxReplicas is zero for horizontally scalable functions.
	MaxReplicas int               `json:"max_replicas,omitempty"`
	Config      map[string]string `json:"config,omitempty"`
}

// catalog holds the known function templates. The UPF is capped at one
// replica: it holds per-session state on the user plane.
var catalog = map[Type]Template{
	TypeAMF: {
		Type: TypeAMF, Description: "Access and Mobility Management Function",
		Image: "core-network/amf:latest", Ports: []int{80, 8080, 29518},
		DefaultReplicas: 2,
		Config:          map[string]string{"plmn_id": "00101", "amf_id": "000001"},
	},
	TypeSMF: {
		Type: TypeSMF, Description: "Session Management Function",
		Image: "core-network/smf:latest", Ports: []int{80, 8080, 29502},
		DefaultReplicas: 2,
	},
	TypeUPF: {
		Type: TypeUPF, Description: "User Plane Function",
		Image: "core-network/upf:latest", Ports: []int{8805, 2152},
		DefaultReplicas: 1, MaxReplicas: 1,
	},
	TypeAUSF: {
		Type: TypeAUSF, Description: "Authentication Server Function",
		Image: "core-network/ausf:latest", Ports: []int{80, 29509},
		DefaultReplicas: 1,
	},
	TypeUDM: {
		Type: TypeUDM, Description: "Unified Data Management",
		Image: "core-network/udm:latest", Ports: []int{80, 29503},
		DefaultReplicas: 1,
	},
	TypeUDR: {
		Type: TypeUDR, Description: "Unified Data Repository",
		Image: "core-network/udr:latest", Ports: []int{80, 29504},
		DefaultReplicas: 1,
	},
	TypeNRF: {
		Type: TypeNRF, Description: "Network Repository Function",
		Image: "core-network/nrf:latest", Ports: []int{80, 29510},
		DefaultReplicas: 1,
	},
	TypeNSSF: {
		Type: TypeNSSF, Description: "Network Slice Selection Function",
		Image: "core-network/nssf:latest", Ports: []int{80, 29531},
		DefaultReplicas: 1,
	},
	TypePCF: {
		Type: TypePCF, Description: "Policy Control Function",
		Image: "core-network/pcf:latest", Ports: []int{80, 29507},
		DefaultReplicas: 1,
	},
	TypeMME: {
		Type: TypeMME, Description: "Mobility Management Entity",
		Image: "core-network/mme:latest", Ports: []int{36412, 2123},
		DefaultReplicas: 2,
	},
	TypeSGW: {
		Type: TypeSGW, Description: "Serving Gateway",
		Image: "core-network/sgw:latest", Ports: []int{2123, 2152},
		DefaultReplicas: 1,
	},
	TypePGW: {
		Type: TypePGW, Description: "Packet Data Network Gateway",
		Image: "core-network/pgw:latest", Ports: []int{2123, 2152},
		DefaultReplicas: 1,
	},
	TypeHSS: {
		Type: TypeHSS, Description: "Home Subscriber Server",
		Image: "core-network/hss:latest", Ports: []int{3868},
		DefaultReplicas: 1,
	},
	TypePCRF: {
		Type: TypePCRF, Description: "Policy and Charging Rules Function",
		Image: "core-network/pcrf:latest", Ports: []int{3868},
		DefaultReplicas: 1,
	},
}

// LookupTemplate returns the template for a function type.
func LookupTemplate(t Type) (Template, bool) {
	tpl, ok := catalog[Type(strings.ToLower(string(t)))]
	return tpl, ok
}

// Types returns all known function types, sorted.
func Types() []Type {
	out := make([]Type, 0, len(catalog))
	for t := range catalog {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Function is one deployed network function.
type Function struct {
	Name      string            `json:"name"`
	Type      Type              `json:"type"`
	Namespace string            `json:"namespace"`
	Replicas  int               `json:"replicas"`
	Ready     int               `json:"ready"`
	Image     string            `json:"image"`
	Ports     []int             `json:"ports"`
	Status    Status            `json:"status"`
	Config    map[string]string `json:"config,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// ReplicaSummary renders replicas as the familiar "ready/desired" form.
func (f Function) ReplicaSummary() string {
	return fmt.Sprintf("%d/%d", f.Ready, f.Replicas)
}

// Registry tracks deployed functions, keyed by namespace and name.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*Function
	now       func() time.Time
}

// NewRegistry builds an empty deployment registry.
func NewRegistry() *Registry {
	return &Registry{
		functions: make(map[string]*Function),
		now:       time.Now,
	}
}

func key(namespace, name string) string {
	return namespace + "/" + name
}

// Deploy records a new function deployment built from the catalog
// template. Replicas <= 0 means the template default. Extra config merges
// over the template's defaults.
func (r *Registry) Deploy(name string, t Type, namespace string, replicas int, extra map[string]string) (*Function, error) {
	tpl, ok := LookupTemplate(t)
	if !ok {
		return nil, fmt.Errorf("unknown network function type %q", t)
	}
	if name == "" {
		name = string(tpl.Type)
	}
	if namespace == "" {
		namespace = "core-network"
	}
	if replicas <= 0 {
		replicas = tpl.DefaultReplicas
	}
	if tpl.MaxReplicas > 0 && replicas > tpl.MaxReplicas {
		return nil, fmt.Errorf("%s supports at most %d replica(s), requested %d", tpl.Type, tpl.MaxReplicas, replicas)
	}

	cfg := make(map[string]string, len(tpl.Config)+len(extra))
	for k, v := range tpl.Config {
		cfg[k] = v
	}
	for k, v := range extra {
		cfg[k] = v
	}

	fn := &Function{
		Name:      name,
		Type:      tpl.Type,
		Namespace: namespace,
		Replicas:  replicas,
		Image:     tpl.Image,
		Ports:     tpl.Ports,
		Status:    StatusPending,
		Config:    cfg,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.functions[key(namespace, name)]; exists {
		return nil, fmt.Errorf("network function %s/%s already deployed", namespace, name)
	}
	r.functions[key(namespace, name)] = fn

	copied := *fn
	return &copied, nil
}

// List returns deployed functions, optionally filtered by namespace and
// type, sorted by namespace then name.
func (r *Registry) List(namespace string, t Type) []Function {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Function, 0, len(r.functions))
	for _, fn := range r.functions {
		if namespace != "" && fn.Namespace != namespace {
			continue
		}
		if t != "" && fn.Type != Type(strings.ToLower(string(t))) {
			continue
		}
		out = append(out, *fn)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Get returns one deployed function.
func (r *Registry) Get(namespace, name string) (Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.functions[key(namespace, name)]
	if !ok {
		return Function{}, false
	}
	return *fn, true
}

// SetStatus updates a function's status and ready count.
func (r *Registry) SetStatus(namespace, name string, status Status, ready int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn, ok := r.functions[key(namespace, name)]
	if !ok {
		return fmt.Errorf("network function %s/%s not found", namespace, name)
	}
	fn.Status = status
	fn.Ready = ready
	return nil
}

// Remove deletes a function from the registry.
func (r *Registry) Remove(namespace, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.functions[key(namespace, name)]; !ok {
		return fmt.Errorf("network function %s/%s not found", namespace, name)
	}
	delete(r.functions, key(namespace, name))
	return nil
}
