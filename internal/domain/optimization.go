package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

type OptimizationMethod string

const (
	MethodSimpleOrder OptimizationMethod = "simple_order"
	MethodOptimized   OptimizationMethod = "optimized"
)

// SimpleOrderMetadata describes a route kept in the order given by the user.
type SimpleOrderMetadata struct {
	Reason string `json:"reason,omitempty"`
}

// OptimizedMetadata describes a route sequenced by an optimizer.
type OptimizedMetadata struct {
	Provider            string   `json:"provider"`
	Profile             string   `json:"profile"`
	ComputingTimeMs     int      `json:"computing_time_ms"`
	UnassignedClientIDs []string `json:"unassigned_client_ids,omitempty"`
}

// OptimizationMetadata is a tagged variant keyed by Method.
// Exactly the field matching Method is set.
type OptimizationMetadata struct {
	Method      OptimizationMethod
	SimpleOrder *SimpleOrderMetadata
	Optimized   *OptimizedMetadata
}

func SimpleOrder(reason string) OptimizationMetadata {
	return OptimizationMetadata{
		Method:      MethodSimpleOrder,
		SimpleOrder: &SimpleOrderMetadata{Reason: reason},
	}
}

func Optimized(m OptimizedMetadata) OptimizationMetadata {
	return OptimizationMetadata{Method: MethodOptimized, Optimized: &m}
}

func (m OptimizationMetadata) Validate() error {
	switch m.Method {
	case MethodSimpleOrder:
		if m.SimpleOrder == nil || m.Optimized != nil {
			return errors.New("optimization metadata: simple_order requires only the simple_order variant")
		}
	case MethodOptimized:
		if m.Optimized == nil || m.SimpleOrder != nil {
			return errors.New("optimization metadata: optimized requires only the optimized variant")
		}
	default:
		return fmt.Errorf("optimization metadata: unknown method %q", m.Method)
	}
	return nil
}

// MarshalJSON flattens the active variant next to its "method" tag.
func (m OptimizationMetadata) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	switch m.Method {
	case MethodSimpleOrder:
		return json.Marshal(struct {
			Method OptimizationMethod `json:"method"`
			SimpleOrderMetadata
		}{m.Method, *m.SimpleOrder})
	default:
		return json.Marshal(struct {
			Method OptimizationMethod `json:"method"`
			OptimizedMetadata
		}{m.Method, *m.Optimized})
	}
}

func (m *OptimizationMetadata) UnmarshalJSON(b []byte) error {
	var tag struct {
		Method OptimizationMethod `json:"method"`
	}
	if err := json.Unmarshal(b, &tag); err != nil {
		return fmt.Errorf("optimization metadata: %w", err)
	}

	switch tag.Method {
	case MethodSimpleOrder:
		var v SimpleOrderMetadata
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("optimization metadata: %w", err)
		}
		*m = OptimizationMetadata{Method: tag.Method, SimpleOrder: &v}
	case MethodOptimized:
		var v OptimizedMetadata
		if err := json.Unmarshal(b, &v); err != nil {
			return fmt.Errorf("optimization metadata: %w", err)
		}
		*m = OptimizationMetadata{Method: tag.Method, Optimized: &v}
	default:
		return fmt.Errorf("optimization metadata: unknown method %q", tag.Method)
	}
	return nil
}
