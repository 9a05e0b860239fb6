package payment

import (
	"fmt"
	"strings"
	"sync"

	dompay "github.com/Zhima-Mochi/pizzashop/internal/domain/payment"
)

// Listing describes one registered method for menus.
type Listing struct {
	Code string     `json:"code"`
	Tag  dompay.Tag `json:"tag"`
	Name string     `json:"name"`
}

type registration struct {
	code   string
	method dompay.Method
}

// Registry maps selection codes to payment methods. Lookups accept the code, the tag
// or the display name.
type Registry struct {
	mu      sync.RWMutex
	methods []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(code string, m dompay.Method) error {
	code = strings.TrimSpace(code)
	if code == "" || m == nil {
		return fmt.Errorf("payment: register: code and method are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reg := range r.methods {
		if reg.code == code || reg.method.Tag() == m.Tag() {
			return fmt.Errorf("payment: register: %s (%s) already registered", code, m.Tag())
		}
	}
	r.methods = append(r.methods, registration{code: code, method: m})
	return nil
}

// MustRegister panics on error; meant for start-up wiring.
func (r *Registry) MustRegister(code string, m dompay.Method) *Registry {
	if err := r.Register(code, m); err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Lookup(key string) (dompay.Method, error) {
	key = strings.TrimSpace(key)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.methods {
		if reg.code == key ||
			strings.EqualFold(string(reg.method.Tag()), key) ||
			strings.EqualFold(reg.method.Name(), key) {
			return reg.method, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", dompay.ErrUnknownMethod, key)
}

// List returns the methods in registration order.
func (r *Registry) List() []Listing {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Listing, 0, len(r.methods))
	for _, reg := range r.methods {
		out = append(out, Listing{Code: reg.code, Tag: reg.method.Tag(), Name: reg.method.Name()})
	}
	return out
}
